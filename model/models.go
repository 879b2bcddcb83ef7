package model

// AllModels lists every model migrated by the application and by tests.
var AllModels = []interface{}{
	&Patient{},
	&Visit{},
	&User{},
	&Hospital{},
	&Session{},
	&SecurityLog{},
}
