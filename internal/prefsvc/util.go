package prefsvc

import "errors"

var errNotAHandler = errors.New("prefsvc: component is not a PreferenceHandler")
