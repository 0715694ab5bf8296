package http

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the REST API under /api/v1.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Post("/", h.createProject)
			r.Get("/", h.listProjects)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", h.getProject)
				r.Delete("/", h.deleteProject)
				r.Get("/state", h.getProjectState)
				r.Get("/progress", h.getProjectProgress)
				r.Get("/history", h.getProjectHistory)

				r.Route("/agents", func(r chi.Router) {
					r.Get("/next", h.getNextAgents)
					r.Get("/{agentName}/readiness", h.canStartAgent)
					r.Post("/{agentName}/complete", h.markAgentComplete)
					r.Post("/{agentName}/fail", h.markAgentFailed)
				})

				r.Route("/features", func(r chi.Router) {
					r.Post("/", h.addFeatures)
					r.Get("/next", h.getNextFeature)
					r.Post("/{featureID}/complete", h.markFeatureComplete)
					r.Post("/{featureID}/retry", h.recordFeatureRetry)
					r.Post("/{featureID}/skip", h.markFeatureSkipped)
				})

				r.Route("/approvals", func(r chi.Router) {
					r.Post("/", h.requestApproval)
					r.Post("/decision", h.recordApproval)
				})

				r.Route("/artifacts", func(r chi.Router) {
					r.Post("/", h.saveArtifact)
					r.Get("/", h.listArtifacts)
					r.Get("/{name}", h.getArtifact)
				})
			})
		})
	})
}
