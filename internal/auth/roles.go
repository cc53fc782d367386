package auth

import "github.com/biztrack/biztrack-server/internal/models"

// Operation is a named capability checked once per request by the API layer.
type Operation string

const (
	OpManageSubscription Operation = "manage_subscription"
	OpManagePlatform     Operation = "manage_platform"
	OpManageBranches     Operation = "manage_branches"
	OpManageUsers        Operation = "manage_users"
	OpManageInventory    Operation = "manage_inventory"
	OpManageParties      Operation = "manage_parties"
	OpManageStores       Operation = "manage_stores"
	OpWriteInvoices      Operation = "write_invoices"
	OpPOSCheckout        Operation = "pos_checkout"
	OpReadReports        Operation = "read_reports"
)

// capabilities maps each role to the operations it may perform. Reads of
// tenant data are open to every authenticated sub-account; this table gates
// writes and administrative actions.
var capabilities = map[models.Role]map[Operation]bool{
	models.RoleAdmin: {
		OpManagePlatform:     true,
		OpManageSubscription: true,
	},
	models.RoleSubscriber: {
		OpManageSubscription: true,
		OpManageBranches:     true,
		OpManageUsers:        true,
		OpManageInventory:    true,
		OpManageParties:      true,
		OpManageStores:       true,
		OpWriteInvoices:      true,
		OpPOSCheckout:        true,
		OpReadReports:        true,
	},
	models.RoleOwner: {
		OpManageBranches:  true,
		OpManageUsers:     true,
		OpManageInventory: true,
		OpManageParties:   true,
		OpManageStores:    true,
		OpWriteInvoices:   true,
		OpPOSCheckout:     true,
		OpReadReports:     true,
	},
	models.RoleManager: {
		OpManageInventory: true,
		OpManageParties:   true,
		OpWriteInvoices:   true,
		OpPOSCheckout:     true,
		OpReadReports:     true,
	},
	models.RoleEmployee: {
		OpManageParties: true,
		OpWriteInvoices: true,
	},
	models.RoleCashier: {
		OpPOSCheckout: true,
	},
}

// Can reports whether the role may perform the operation. Unknown roles have
// no capabilities.
func Can(role models.Role, op Operation) bool {
	ops, ok := capabilities[role]
	if !ok {
		return false
	}
	return ops[op]
}
