package scope

// Entity type names double as table names in the Postgres store, so they are
// restricted to this registry; the registry is also the injection guard for
// SQL identifiers. Audit events live in a dedicated table with its own column
// shape and are persisted through the audit store, not through this registry.
const (
	EntityPatients       = "patients"
	EntityAppointments   = "appointments"
	EntityInvoices       = "invoices"
	EntityInventoryItems = "inventory_items"

	// Global reference data, shared across tenants.
	EntityDiagnosisCodes = "diagnosis_codes"
)

// Well-known record fields handled as first-class columns.
const (
	FieldID       = "id"
	FieldTenantID = "tenant_id"
	FieldBranchID = "branch_id"
)

// tenantScoped is the allow-list of entity types that receive automatic tenant
// filtering. Adding a tenant-owned entity type anywhere in the system REQUIRES
// an entry here; types left off the list pass through unfiltered.
var tenantScoped = map[string]bool{
	EntityPatients:       true,
	EntityAppointments:   true,
	EntityInvoices:       true,
	EntityInventoryItems: true,
}

// known lists every entity type the stores accept, scoped or not.
var known = map[string]bool{
	EntityPatients:       true,
	EntityAppointments:   true,
	EntityInvoices:       true,
	EntityInventoryItems: true,
	EntityDiagnosisCodes: true,
}

// TenantScoped reports whether the entity type is on the tenant-scoped
// allow-list.
func TenantScoped(entityType string) bool {
	return tenantScoped[entityType]
}

// Known reports whether the entity type is registered at all.
func Known(entityType string) bool {
	return known[entityType]
}
