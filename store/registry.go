package store

// Relationship declares an inline id list on an owner record whose entries
// are ids of records in another table.
type Relationship struct {
	// OwnerType is the owning record kind (e.g., "event").
	OwnerType string

	// OwnerTable is the DynamoDB table holding owner records.
	OwnerTable string

	// ListAttr is the encoded field name of the id list (e.g., "ticket_ids").
	ListAttr string

	// TargetType is the kind the listed ids refer to (e.g., "ticket").
	TargetType string

	// TargetTable is the DynamoDB table holding target records.
	TargetTable string
}

// Registry holds all known relationship lists.
type Registry struct {
	relationships []Relationship
	byOwner       map[string][]Relationship
	ownerByTable  map[string]string
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		relationships: []Relationship{},
		byOwner:       make(map[string][]Relationship),
		ownerByTable:  make(map[string]string),
	}
}

// Register adds a relationship to the registry.
func (r *Registry) Register(rel Relationship) {
	r.relationships = append(r.relationships, rel)
	r.byOwner[rel.OwnerType] = append(r.byOwner[rel.OwnerType], rel)
	r.ownerByTable[rel.OwnerTable] = rel.OwnerType
}

// ListsOf returns all relationship lists carried by an owner type.
func (r *Registry) ListsOf(ownerType string) []Relationship {
	return r.byOwner[ownerType]
}

// OwnerTypeForTable returns the owner type stored in table, if any
// relationship was registered for it.
func (r *Registry) OwnerTypeForTable(table string) (string, bool) {
	ownerType, ok := r.ownerByTable[table]
	return ownerType, ok
}

// AllRelationships returns all registered relationships.
func (r *Registry) AllRelationships() []Relationship {
	return r.relationships
}
