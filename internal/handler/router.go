package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Handlers groups every HTTP handler the API mounts.
type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	KYC          *KYCHandler
	CreatorKYC   *CreatorKYCHandler
	Tasks        *TaskHandler
	TaskDraft    *TaskDraftHandler
	Deliveries   *DeliveryHandler
	Notification *NotificationHandler
}

// Register mounts the routes on r. authenticate guards everything except
// health, register and login; idempotent, when non-nil, wraps the KYC
// submission routes.
func (hs *Handlers) Register(r *mux.Router, authenticate, idempotent mux.MiddlewareFunc) {
	if idempotent == nil {
		idempotent = func(next http.Handler) http.Handler { return next }
	}

	r.HandleFunc("/health", hs.Health.Health).Methods("GET")

	public := r.PathPrefix("/api/v1").Subrouter()
	public.HandleFunc("/auth/register", hs.Auth.Register).Methods("POST")
	public.HandleFunc("/auth/login", hs.Auth.Login).Methods("POST")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authenticate)

	api.HandleFunc("/auth/me", hs.Auth.Me).Methods("GET")
	api.HandleFunc("/auth/verification/send", hs.Auth.SendVerification).Methods("POST")
	api.HandleFunc("/auth/verification/verify", hs.Auth.VerifyCode).Methods("POST")
	api.HandleFunc("/auth/role", hs.Auth.SelectRole).Methods("POST")

	api.HandleFunc("/kyc", hs.KYC.State).Methods("GET")
	api.HandleFunc("/kyc", hs.KYC.Reset).Methods("DELETE")
	api.HandleFunc("/kyc/active-phase", hs.KYC.SetActivePhase).Methods("PUT")
	api.HandleFunc("/kyc/verify", hs.KYC.Verify).Methods("POST")
	api.HandleFunc("/kyc/unlock", hs.KYC.Unlock).Methods("POST")
	api.HandleFunc("/kyc/{phase}/data", hs.KYC.UpdateData).Methods("PATCH")
	api.HandleFunc("/kyc/{phase}/error", hs.KYC.SetPhaseError).Methods("PUT")
	api.Handle("/kyc/{phase}/submit", idempotent(http.HandlerFunc(hs.KYC.SubmitPhase))).Methods("POST")
	api.HandleFunc("/kyc/{phase}/complete", hs.KYC.CompletePhase).Methods("POST")

	api.HandleFunc("/creator/kyc", hs.CreatorKYC.Get).Methods("GET")
	api.HandleFunc("/creator/kyc", hs.CreatorKYC.Update).Methods("PATCH")
	api.HandleFunc("/creator/kyc", hs.CreatorKYC.Reset).Methods("DELETE")
	api.HandleFunc("/creator/kyc/next", hs.CreatorKYC.Next).Methods("POST")
	api.HandleFunc("/creator/kyc/prev", hs.CreatorKYC.Prev).Methods("POST")
	api.HandleFunc("/creator/kyc/step", hs.CreatorKYC.GoTo).Methods("PUT")
	api.HandleFunc("/creator/kyc/documents/{field}", hs.CreatorKYC.AttachDocument).Methods("POST")
	api.Handle("/creator/kyc/complete", idempotent(http.HandlerFunc(hs.CreatorKYC.Complete))).Methods("POST")
	api.HandleFunc("/creator/kyc/status", hs.CreatorKYC.Status).Methods("GET")
	api.HandleFunc("/creator/dashboard", hs.Tasks.Dashboard).Methods("GET")

	// Draft and stats routes are registered before /tasks/{id}.
	api.HandleFunc("/tasks/draft", hs.TaskDraft.Start).Methods("POST")
	api.HandleFunc("/tasks/draft", hs.TaskDraft.Get).Methods("GET")
	api.HandleFunc("/tasks/draft", hs.TaskDraft.Cancel).Methods("DELETE")
	api.HandleFunc("/tasks/draft/details", hs.TaskDraft.SaveDetails).Methods("PUT")
	api.HandleFunc("/tasks/draft/compensation", hs.TaskDraft.SaveCompensation).Methods("PUT")
	api.HandleFunc("/tasks/draft/requirements", hs.TaskDraft.SaveRequirements).Methods("PUT")
	api.HandleFunc("/tasks/draft/publish", hs.TaskDraft.Publish).Methods("POST")
	api.HandleFunc("/tasks/stats", hs.Tasks.Stats).Methods("GET")
	api.HandleFunc("/tasks/refresh", hs.Tasks.Refresh).Methods("POST")
	api.HandleFunc("/tasks", hs.Tasks.List).Methods("GET")
	api.HandleFunc("/tasks", hs.Tasks.Create).Methods("POST")
	api.HandleFunc("/tasks/{id}", hs.Tasks.Update).Methods("PATCH")
	api.HandleFunc("/tasks/{id}", hs.Tasks.Delete).Methods("DELETE")

	api.HandleFunc("/deliveries", hs.Deliveries.List).Methods("GET")
	api.HandleFunc("/deliveries/refresh", hs.Deliveries.Refresh).Methods("POST")
	api.HandleFunc("/deliveries/stats", hs.Deliveries.Stats).Methods("GET")
	api.HandleFunc("/deliveries/{id}/accept", hs.Deliveries.Accept).Methods("POST")
	api.HandleFunc("/deliveries/{id}/complete", hs.Deliveries.Complete).Methods("POST")
	api.HandleFunc("/fulfiller/dashboard", hs.Deliveries.Dashboard).Methods("GET")

	api.HandleFunc("/notifications", hs.Notification.List).Methods("GET")
	api.HandleFunc("/notifications", hs.Notification.Add).Methods("POST")
	api.HandleFunc("/notifications/unread-count", hs.Notification.UnreadCount).Methods("GET")
	api.HandleFunc("/notifications/read-all", hs.Notification.MarkAllAsRead).Methods("POST")
	api.HandleFunc("/notifications/ws", hs.Notification.Stream).Methods("GET")
	api.HandleFunc("/notifications/{id}/read", hs.Notification.MarkAsRead).Methods("POST")
	api.HandleFunc("/notifications/{id}", hs.Notification.Delete).Methods("DELETE")
}
