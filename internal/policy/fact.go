// Package policy implements a minimal client for the remote policy decision
// service. The service owns the relationship/role fact graph and is the sole
// authority for evaluating derived permissions; this client only inserts,
// deletes and queries facts.
package policy

// Value is a typed reference to an entity known to the decision service.
type Value struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// NewValue builds a concrete typed reference.
func NewValue(typ, id string) Value {
	return Value{Type: typ, ID: id}
}

// String builds a literal string value.
func String(s string) Value {
	return Value{Type: "String", ID: s}
}

// IsConcrete reports whether both type and id are set.
func (v Value) IsConcrete() bool {
	return v.Type != "" && v.ID != ""
}

// Fact is a predicate over three concrete values, e.g.
// has_role(User:u1, String:organizer, Trip:t1).
type Fact struct {
	Predicate string `json:"predicate"`
	Subject   Value  `json:"subject"`
	Relation  Value  `json:"relation"`
	Object    Value  `json:"object"`
}

// FactPattern matches facts for deletion. Nil fields are wildcards.
type FactPattern struct {
	Predicate string `json:"predicate"`
	Subject   *Value `json:"subject"`
	Relation  *Value `json:"relation"`
	Object    *Value `json:"object"`
}

// Pattern converts a fact into an exact-match pattern.
func (f Fact) Pattern() FactPattern {
	subject, relation, object := f.Subject, f.Relation, f.Object
	return FactPattern{
		Predicate: f.Predicate,
		Subject:   &subject,
		Relation:  &relation,
		Object:    &object,
	}
}

// HasRole builds a has_role fact binding a subject to a named role on a resource.
func HasRole(subject Value, role string, resource Value) Fact {
	return Fact{
		Predicate: "has_role",
		Subject:   subject,
		Relation:  String(role),
		Object:    resource,
	}
}

// HasRelation builds a has_relation fact linking two resources.
func HasRelation(subject Value, relation string, object Value) Fact {
	return Fact{
		Predicate: "has_relation",
		Subject:   subject,
		Relation:  String(relation),
		Object:    object,
	}
}

// RolePattern matches every has_role fact for a subject on a resource,
// regardless of role.
func RolePattern(subject Value, resource Value) FactPattern {
	return FactPattern{
		Predicate: "has_role",
		Subject:   &subject,
		Object:    &resource,
	}
}

// changeset is one entry of a batch submission: either inserts or deletes.
type changeset struct {
	Inserts []Fact        `json:"inserts,omitempty"`
	Deletes []FactPattern `json:"deletes,omitempty"`
}

// Batch accumulates an ordered list of insert/delete operations. Adjacent
// operations of the same kind are coalesced into one changeset entry so they
// travel as a single unit; a kind switch starts a new entry, preserving the
// overall order of operations.
type Batch struct {
	changes []changeset
}

// Insert appends a fact insertion.
func (b *Batch) Insert(fact Fact) {
	if n := len(b.changes); n > 0 && len(b.changes[n-1].Inserts) > 0 {
		b.changes[n-1].Inserts = append(b.changes[n-1].Inserts, fact)
		return
	}
	b.changes = append(b.changes, changeset{Inserts: []Fact{fact}})
}

// Delete appends a pattern deletion.
func (b *Batch) Delete(pattern FactPattern) {
	if n := len(b.changes); n > 0 && len(b.changes[n-1].Deletes) > 0 {
		b.changes[n-1].Deletes = append(b.changes[n-1].Deletes, pattern)
		return
	}
	b.changes = append(b.changes, changeset{Deletes: []FactPattern{pattern}})
}

// Empty reports whether no operations were accumulated.
func (b *Batch) Empty() bool {
	return len(b.changes) == 0
}

// Walk visits the accumulated operations in submission order. Each changeset
// holds only one kind of operation, so per-changeset visiting preserves the
// original order.
func (b *Batch) Walk(onInsert func(Fact), onDelete func(FactPattern)) {
	for _, cs := range b.changes {
		for _, fact := range cs.Inserts {
			onInsert(fact)
		}
		for _, pattern := range cs.Deletes {
			onDelete(pattern)
		}
	}
}
