package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/biztrack/biztrack-server/internal/auth"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)
	r.Get("/", s.HandleRoot)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.HandleRegister)
		r.Post("/login", s.HandleLogin)
		r.Post("/refresh", s.HandleRefresh)
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/me", s.HandleGetCurrentUser)
		})
	})

	// Public storefront (no auth)
	r.Route("/storefront/{slug}", func(r chi.Router) {
		r.Get("/", s.HandleStorefrontGetStore)
		r.Get("/products", s.HandleStorefrontListProducts)
		r.Post("/orders", s.HandleStorefrontCreateOrder)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		// Subscription
		r.Route("/subscription", func(r chi.Router) {
			r.Get("/", s.HandleGetSubscription)
			r.Get("/check-limit", s.HandleCheckLimit)
			r.Post("/check-limit", s.HandleCheckLimit)
			r.With(s.requireCapability(auth.OpManageSubscription)).
				Post("/renewal-request", s.HandleRenewalRequest)
		})

		// Platform administration
		r.Route("/admin/tenants/{id}", func(r chi.Router) {
			r.Use(s.requireCapability(auth.OpManagePlatform))
			r.Put("/plan", s.HandleAdminUpdatePlan)
			r.Put("/limits", s.HandleAdminUpdateLimits)
			r.Put("/active", s.HandleAdminSetTenantActive)
		})

		// Sub-accounts
		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.HandleListSubAccounts)
			r.Group(func(r chi.Router) {
				r.Use(s.requireCapability(auth.OpManageUsers))
				r.Post("/", s.HandleCreateSubAccount)
				r.Put("/{id}/active", s.HandleSetSubAccountActive)
				r.Delete("/{id}", s.HandleDeleteSubAccount)
			})
		})

		// Branches
		r.Route("/branches", func(r chi.Router) {
			r.Get("/", s.HandleListBranches)
			r.Get("/{id}", s.HandleGetBranch)
			r.Group(func(r chi.Router) {
				r.Use(s.requireCapability(auth.OpManageBranches))
				r.Post("/", s.HandleCreateBranch)
				r.Put("/{id}", s.HandleUpdateBranch)
				r.Delete("/{id}", s.HandleDeleteBranch)
			})
		})

		// Customers
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", s.HandleListCustomers)
			r.Get("/{id}", s.HandleGetCustomer)
			r.Group(func(r chi.Router) {
				r.Use(s.requireCapability(auth.OpManageParties))
				r.Post("/", s.HandleCreateCustomer)
				r.Put("/{id}", s.HandleUpdateCustomer)
				r.Delete("/{id}", s.HandleDeleteCustomer)
			})
		})

		// Suppliers
		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", s.HandleListSuppliers)
			r.Get("/{id}", s.HandleGetSupplier)
			r.Group(func(r chi.Router) {
				r.Use(s.requireCapability(auth.OpManageParties))
				r.Post("/", s.HandleCreateSupplier)
				r.Put("/{id}", s.HandleUpdateSupplier)
				r.Delete("/{id}", s.HandleDeleteSupplier)
			})
		})

		// Categories
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.HandleListCategories)
			r.Group(func(r chi.Router) {
				r.Use(s.requireCapability(auth.OpManageInventory))
				r.Post("/", s.HandleCreateCategory)
				r.Put("/{id}", s.HandleUpdateCategory)
				r.Delete("/{id}", s.HandleDeleteCategory)
			})
		})

		// Warehouses
		r.Route("/warehouses", func(r chi.Router) {
			r.Get("/", s.HandleListWarehouses)
			r.Group(func(r chi.Router) {
				r.Use(s.requireCapability(auth.OpManageInventory))
				r.Post("/", s.HandleCreateWarehouse)
				r.Put("/{id}", s.HandleUpdateWarehouse)
				r.Delete("/{id}", s.HandleDeleteWarehouse)
			})
		})

		// Products
		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.HandleListProducts)
			r.Get("/{id}", s.HandleGetProduct)
			r.Group(func(r chi.Router) {
				r.Use(s.requireCapability(auth.OpManageInventory))
				r.Post("/", s.HandleCreateProduct)
				r.Put("/{id}", s.HandleUpdateProduct)
				r.Delete("/{id}", s.HandleDeleteProduct)
			})
		})

		// Stores
		r.Route("/stores", func(r chi.Router) {
			r.Get("/", s.HandleListStores)
			r.Get("/{id}", s.HandleGetStore)
			r.Group(func(r chi.Router) {
				r.Use(s.requireCapability(auth.OpManageStores))
				r.Post("/", s.HandleCreateStore)
				r.Put("/{id}", s.HandleUpdateStore)
				r.Delete("/{id}", s.HandleDeleteStore)
			})
		})

		// Invoices
		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", s.HandleListInvoices)
			r.Get("/{id}", s.HandleGetInvoice)
			r.With(s.requireCapability(auth.OpReadReports)).
				Get("/{id}/pdf", s.HandleInvoicePDF)
			r.Group(func(r chi.Router) {
				r.Use(s.requireCapability(auth.OpWriteInvoices))
				r.Post("/", s.HandleCreateInvoice)
				r.Post("/{id}/payments", s.HandleAddPayment)
				r.Delete("/{id}", s.HandleDeleteInvoice)
			})
		})

		// Point of sale
		r.With(s.requireCapability(auth.OpPOSCheckout)).
			Post("/pos/checkout", s.HandlePOSCheckout)

		// Events
		r.Get("/events", s.HandleListEvents)
	})
}
