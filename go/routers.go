package replenishmentserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is the information for every URI.
type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc gin.HandlerFunc
}

// ApiHandleFunctions groups the API implementations served by the router.
type ApiHandleFunctions struct {
	ReplenishmentAPI ReplenishmentAPI
}

// NewRouter returns a gin engine with every route registered.
func NewRouter(handleFunctions ApiHandleFunctions) *gin.Engine {
	return NewRouterWithGinEngine(gin.Default(), handleFunctions)
}

// NewRouterWithGinEngine registers the routes on an existing engine.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions) *gin.Engine {
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		switch route.Method {
		case http.MethodGet:
			router.GET(route.Pattern, route.HandlerFunc)
		case http.MethodPost:
			router.POST(route.Pattern, route.HandlerFunc)
		case http.MethodPut:
			router.PUT(route.Pattern, route.HandlerFunc)
		case http.MethodPatch:
			router.PATCH(route.Pattern, route.HandlerFunc)
		case http.MethodDelete:
			router.DELETE(route.Pattern, route.HandlerFunc)
		}
	}
	return router
}

// DefaultHandleFunc answers routes without an implementation.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

func getRoutes(handleFunctions ApiHandleFunctions) []Route {
	api := handleFunctions.ReplenishmentAPI
	return []Route{
		{"Healthz", http.MethodGet, "/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) }},
		{"PlanShortageOrders", http.MethodPost, "/v1/branches/:branchId/shortage-orders", api.PlanShortageOrders},
		{"PlanPeriodicOrders", http.MethodPost, "/v1/branches/:branchId/periodic-orders", api.PlanPeriodicOrders},
		{"SweepBranch", http.MethodPost, "/v1/branches/:branchId/sweep", api.SweepBranch},
		{"GetPendingStatus", http.MethodGet, "/v1/branches/:branchId/products/:productId/pending", api.GetPendingStatus},
		{"ListBranchOrders", http.MethodGet, "/v1/branches/:branchId/orders", api.ListBranchOrders},
	}
}
