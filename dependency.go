package vulnrules

// Dependency is one declared package from the consumer's inventory.
//
// CurrentValue is the raw version string as written in the manifest. It
// may be unparseable for its datasource's version scheme; that is a valid
// state and is handled during resolution rather than at construction.
type Dependency struct {
	Name         string
	CurrentValue string
	Datasource   string
}
