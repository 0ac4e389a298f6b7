// Package model defines the domain entities of the configuration hierarchy:
// scope types, config items, composite-keyed config values and the property
// bag a value is resolved for, together with the error kinds shared by the
// storage, resolver and API layers.
package model
