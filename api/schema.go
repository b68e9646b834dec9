package api

// Layout is the root configuration of a resource grid. It lists the origins
// that are layered into one tree and the sources of the module set.
type Layout struct {
	// Origins in priority order; the first one wins when paths collide.
	Origins []OriginSpec `json:"origins" mapstructure:"origins"`
	// Modules names installed modules directly.
	Modules []string `json:"modules,omitempty" mapstructure:"modules"`
	// Definitions is a directory of JSON definition documents. Each document
	// names the module that owns it.
	Definitions string `json:"definitions,omitempty" mapstructure:"definitions"`
	// DefinitionSelector is a JSONPath selecting the module attribute of a
	// definition document.
	DefinitionSelector string `json:"definition_selector,omitempty" mapstructure:"definition_selector"`
}

// Origin kinds accepted in OriginSpec.Kind.
const (
	OriginFile       = "file"
	OriginClasspath  = "classpath"
	OriginRepository = "repository"
)

// OriginSpec describes one origin.
type OriginSpec struct {
	Name string `json:"name" mapstructure:"name"`
	// Kind is one of OriginFile, OriginClasspath or OriginRepository.
	Kind string `json:"kind" mapstructure:"kind"`
	// Path is a directory for file and classpath origins and a SQLite
	// database for repository origins.
	Path string `json:"path" mapstructure:"path"`
}

// Row is one resource in a listing.
type Row struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Dir        bool     `json:"dir,omitempty"`
	Origins    []string `json:"origins"`
	Overridden bool     `json:"overridden,omitempty"`
	Status     string   `json:"status,omitempty"`
}

// Page is one page of rows together with the total match count.
type Page struct {
	Offset int   `json:"offset"`
	Limit  int   `json:"limit"`
	Total  int   `json:"total"`
	Rows   []Row `json:"rows"`
}
