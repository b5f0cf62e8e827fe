package dto

// DetectRequest carries one frame as a data URL.
type DetectRequest struct {
	Image     string `json:"image"`
	Workspace string `json:"workspace,omitempty"`
}

// WorkspaceRequest names the workspace an action applies to.
type WorkspaceRequest struct {
	Workspace string `json:"workspace,omitempty"`
}
