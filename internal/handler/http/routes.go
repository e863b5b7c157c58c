package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)

	router.Route("/api/v1", func(r chi.Router) {
		// routes without authorization
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", h.register)
			r.Post("/auth/login", h.login)
			r.Post("/auth/mfa/verify", h.verifyMFA)
			r.Post("/auth/refresh", h.refresh)
			r.Post("/auth/logout", h.logout)

			// the link token is the capability, no session required
			r.Get("/shares/links/{token}", h.redeemShareLink)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.auth)

			r.Post("/auth/mfa/setup", h.setupTOTP)
			r.Post("/auth/mfa/confirm", h.confirmTOTP)
			r.Post("/auth/password", h.changePassword)
			r.Delete("/auth/account", h.deleteAccount)
			r.Get("/auth/sessions", h.listSessions)
			r.Delete("/auth/sessions/{sessionID}", h.revokeSession)

			r.Post("/vaults", h.createVault)
			r.Get("/vaults", h.listVaults)
			r.Get("/vaults/{vaultID}", h.getVault)
			r.Patch("/vaults/{vaultID}", h.updateVault)
			r.Delete("/vaults/{vaultID}", h.deleteVault)
			r.Get("/vaults/{vaultID}/folders", h.listFolders)

			r.Post("/folders", h.createFolder)
			r.Post("/folders/{folderID}/move", h.moveFolder)

			r.Post("/secrets", h.createSecret)
			r.Get("/secrets", h.listSecrets)
			r.Get("/secrets/{secretID}", h.getSecret)
			r.Patch("/secrets/{secretID}", h.updateSecret)
			r.Delete("/secrets/{secretID}", h.deleteSecret)
			r.Post("/secrets/{secretID}/archive", h.archiveSecret)
			r.Post("/secrets/{secretID}/unarchive", h.unarchiveSecret)
			r.Post("/secrets/{secretID}/restore", h.restoreSecret)
			r.Delete("/secrets/{secretID}/purge", h.purgeSecret)
			r.Post("/secrets/{secretID}/move", h.moveSecret)
			r.Post("/secrets/{secretID}/duplicate", h.duplicateSecret)
			r.Get("/secrets/{secretID}/versions", h.secretVersions)

			r.Post("/secrets/{secretID}/shares", h.shareSecret)
			r.Post("/secrets/{secretID}/shares/link", h.createShareLink)
			r.Get("/secrets/{secretID}/shares", h.shareHistory)
			r.Get("/shares/inbox", h.sharedWithMe)
			r.Patch("/shares/{grantID}", h.updateShareGrant)
			r.Delete("/shares/{grantID}", h.revokeShareGrant)

			r.Get("/audit", h.auditLog)
		})
	})

	return router
}
