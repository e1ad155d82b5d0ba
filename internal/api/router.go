package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/example/storefront-core/internal/api/middleware"
	"github.com/example/storefront-core/internal/auth"
)

func NewRouter(handlers *Handlers, authHandlers *AuthHandlers, jwtService *auth.JWTService) http.Handler {
	mux := http.NewServeMux()

	requireAuth := middleware.AuthMiddleware(jwtService)
	requireAdmin := func(next http.Handler) http.Handler {
		return requireAuth(middleware.RequireRole("admin")(next))
	}

	// Auth
	mux.HandleFunc("/auth/register", postOnly(authHandlers.Register))
	mux.HandleFunc("/auth/login", postOnly(authHandlers.Login))
	mux.HandleFunc("/auth/logout", postOnly(authHandlers.Logout))
	mux.HandleFunc("/auth/refresh", postOnly(authHandlers.Refresh))
	mux.Handle("/auth/me", requireAuth(http.HandlerFunc(authHandlers.Me)))

	// Products
	mux.Handle("/products", methodSwitch(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(handlers.GetProducts),
		http.MethodPost: requireAdmin(http.HandlerFunc(handlers.CreateProduct)),
	}))
	mux.HandleFunc("/products/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handlers.GetProduct(w, r)
	})

	// Cart
	mux.Handle("/cart", requireAuth(methodSwitch(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(handlers.GetCart),
	})))
	mux.Handle("/cart/items", requireAuth(methodSwitch(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(handlers.AddToCart),
	})))
	mux.Handle("/cart/items/", requireAuth(methodSwitch(map[string]http.Handler{
		http.MethodPut:    http.HandlerFunc(handlers.UpdateCartLine),
		http.MethodDelete: http.HandlerFunc(handlers.RemoveFromCart),
	})))

	// Orders
	mux.Handle("/orders", requireAuth(methodSwitch(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(handlers.GetOrders),
		http.MethodPost: http.HandlerFunc(handlers.PlaceOrder),
	})))
	mux.Handle("/orders/", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/complete") && r.Method == http.MethodPost:
			handlers.CompleteOrder(w, r)
		case r.Method == http.MethodGet:
			handlers.GetOrder(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// Payment webhook. The gateway authenticates with the MAC inside the
	// body, not a bearer token.
	mux.HandleFunc("/callback", postOnly(handlers.PaymentCallback))

	// Assistant proxy
	mux.HandleFunc("/assistant/detect-intent", postOnly(handlers.DetectIntent))

	return withLogging(mux)
}

func postOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func methodSwitch(routes map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := routes[r.Method]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[API] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
