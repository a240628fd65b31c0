package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	status := StatusHandler{CheckDB: deps.CheckDB, CheckStorage: deps.CheckStorage, Users: deps.Users, Files: deps.FileCounts}
	users := UsersHandler{Users: deps.Users, Sessions: deps.Sessions, Limiter: deps.AuthLimiter}
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Limiter: deps.AuthLimiter}
	files := FilesHandler{Files: deps.Files, Sessions: deps.Sessions}

	mux.HandleFunc("GET /status", status.Status)
	mux.HandleFunc("GET /stats", status.Stats)

	mux.HandleFunc("POST /users", users.Create)
	mux.HandleFunc("GET /users/me", users.Me)
	mux.HandleFunc("GET /connect", auth.Connect)
	mux.HandleFunc("GET /disconnect", auth.Disconnect)

	mux.HandleFunc("POST /files", files.Create)
	mux.HandleFunc("GET /files", files.Index)
	mux.HandleFunc("GET /files/{id}", files.Show)
	mux.HandleFunc("PUT /files/{id}/publish", files.Publish)
	mux.HandleFunc("PUT /files/{id}/unpublish", files.Unpublish)
	mux.HandleFunc("GET /files/{id}/data", files.Data)
}
