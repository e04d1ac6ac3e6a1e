package model

// Annotation type URIs written into views
const (
	TypeToken           = "http://vocab.lappsgrid.org/Token"
	TypeMarkable        = "http://vocab.lappsgrid.org/Markable"
	TypeGenericRelation = "http://vocab.lappsgrid.org/GenericRelation"
)

// Feature keys
const (
	FeatureWord      = "word"      // Token surface string
	FeatureTargets   = "targets"   // Token ids covered by a markable
	FeatureArguments = "arguments" // Argument markable ids of a relation
	FeatureRelation  = "relation"  // Predicate markable id of a relation
	FeatureLabel     = "label"     // Predicate surface text of a relation
)
