package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/shopgreen/shopgreen-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса ShopGreen.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/favorites", h.GetFavorites)
			r.Post("/favorites", h.AddFavorite)
			r.Delete("/favorites/{shopID}", h.RemoveFavorite)
		})
	})

	r.Route("/api/shops", func(r chi.Router) {
		r.Get("/", h.ListShops)
		r.Get("/{shopID}", h.GetShop)
		r.Get("/{shopID}/votes", h.GetVotes)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/", h.SubmitShop)
			r.Put("/{shopID}", h.UpdateShop)
			r.Post("/{shopID}/vote", h.CastVote)
			r.Post("/{shopID}/claim", h.SubmitClaim)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)
			r.Use(h.authMiddleware.RequireOperator)

			r.Delete("/{shopID}", h.DeleteShop)
			r.Post("/{shopID}/claim/resolve", h.ResolveClaim)
		})
	})

	r.Route("/api/ecommerce", func(r chi.Router) {
		r.Get("/sellers", h.ListSellers)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/sellers", h.CreateSellerProfile)
		})
	})

	r.Route("/api/moderation", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)
		r.Use(h.authMiddleware.RequireOperator)

		r.Get("/queue", h.ModerationQueue)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
