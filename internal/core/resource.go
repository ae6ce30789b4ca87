package core

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Resource describes one entity family exposed by the backend.
type Resource struct {
	// Name is the registry key and the default list envelope key.
	Name string
	// Path is the collection path, e.g. "/projects".
	Path string
	// ListKeys are the domain envelope keys list responses may use.
	ListKeys []string
	// IDKeys is the identifier fallback chain.
	IDKeys []string
}

// Resource names.
const (
	Clients     = "clients"
	Projects    = "projects"
	Invoices    = "invoices"
	CreditNotes = "creditNotes"
	Payments    = "payments"
	Deals       = "deals"
	Leads       = "leads"
	TimeLogs    = "timeLogs"
	Departments = "departments"
	Categories  = "categories"
	Employees   = "employees"
)

var registry = map[string]Resource{
	Clients:     {Name: Clients, Path: "/clients", ListKeys: []string{"clients"}, IDKeys: []string{"id", "clientId"}},
	Projects:    {Name: Projects, Path: "/projects", ListKeys: []string{"projects"}, IDKeys: []string{"id", "projectId"}},
	Invoices:    {Name: Invoices, Path: "/invoices", ListKeys: []string{"invoices"}, IDKeys: []string{"id", "invoiceId", "invoiceNumber"}},
	CreditNotes: {Name: CreditNotes, Path: "/credit-notes", ListKeys: []string{"creditNotes", "credit_notes"}, IDKeys: []string{"id", "creditNoteId", "creditNoteNumber"}},
	Payments:    {Name: Payments, Path: "/payments", ListKeys: []string{"payments"}, IDKeys: []string{"id", "paymentId"}},
	Deals:       {Name: Deals, Path: "/deals", ListKeys: []string{"deals"}, IDKeys: []string{"id", "dealId"}},
	Leads:       {Name: Leads, Path: "/leads", ListKeys: []string{"leads"}, IDKeys: []string{"id", "leadId"}},
	TimeLogs:    {Name: TimeLogs, Path: "/timesheets", ListKeys: []string{"timeLogs", "timesheets", "logs"}, IDKeys: []string{"id", "timeLogId"}},
	Departments: {Name: Departments, Path: "/departments", ListKeys: []string{"departments"}, IDKeys: []string{"id", "departmentId"}},
	Categories:  {Name: Categories, Path: "/categories", ListKeys: []string{"categories"}, IDKeys: []string{"id", "categoryId"}},
	Employees:   {Name: Employees, Path: "/employees", ListKeys: []string{"employees"}, IDKeys: []string{"id", "employeeId"}},
}

// LookupResource returns the registered resource by name.
func LookupResource(name string) (Resource, error) {
	r, ok := registry[name]
	if !ok {
		return Resource{}, fmt.Errorf("%w: %q", ErrUnknownResource, name)
	}
	return r, nil
}

// MustResource is LookupResource for names known at compile time.
func MustResource(name string) Resource {
	r, err := LookupResource(name)
	if err != nil {
		panic(err)
	}
	return r
}

// ResourceNames lists the registry in stable order.
func ResourceNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EntityPath is GET/DELETE /{res}/{id}.
func (r Resource) EntityPath(id string) string {
	return r.Path + "/" + url.PathEscape(id)
}

// ActionPath is /{res}/{id}/{action}.
func (r Resource) ActionPath(id, action string) string {
	return r.EntityPath(id) + "/" + action
}

// EntityID resolves an entity's identifier with this resource's key chain.
func (r Resource) EntityID(e Entity) string {
	return e.ID(r.IDKeys...)
}

// Scope identifies one client-held list, e.g. "projects of client 42".
type Scope struct {
	Resource Resource
	// Parent is the parent path segment ("client"); empty for the whole collection.
	Parent   string
	ParentID string
}

// ScopeOf builds a scope for a registered resource.
func ScopeOf(resource, parent, parentID string) (Scope, error) {
	r, err := LookupResource(resource)
	if err != nil {
		return Scope{}, err
	}
	return Scope{Resource: r, Parent: parent, ParentID: parentID}, nil
}

// Key is a stable identifier for the scope, e.g. "projects/client/42".
func (s Scope) Key() string {
	if s.Parent == "" {
		return s.Resource.Name
	}
	return strings.Join([]string{s.Resource.Name, s.Parent, s.ParentID}, "/")
}

// ListPath is the endpoint returning the scope's list.
func (s Scope) ListPath() string {
	if s.Parent == "" {
		return s.Resource.Path
	}
	return s.Resource.Path + "/" + s.Parent + "/" + url.PathEscape(s.ParentID)
}

// ParseScopeKey is the inverse of Key.
func ParseScopeKey(key string) (Scope, error) {
	parts := strings.Split(key, "/")
	switch len(parts) {
	case 1:
		return ScopeOf(parts[0], "", "")
	case 3:
		if parts[1] == "" || parts[2] == "" {
			return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, key)
		}
		return ScopeOf(parts[0], parts[1], parts[2])
	default:
		return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, key)
	}
}

func (s Scope) String() string {
	return s.Key()
}
