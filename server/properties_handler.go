package server

import "net/http"

// Property is a minimal resource used to exercise protected API routes.
type Property struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Units   int    `json:"units"`
}

var sampleProperties = []Property{
	{ID: "prop-1", Name: "Harbour View", Address: "12 Quay Street", Units: 24},
	{ID: "prop-2", Name: "Elm Court", Address: "3 Elm Road", Units: 8},
	{ID: "prop-3", Name: "The Foundry", Address: "88 Mill Lane", Units: 40},
}

func (s *Server) PropertiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: sampleProperties})
	}
}
