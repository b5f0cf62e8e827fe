package dto

import "potholewatch/internal/service/ai"

type ExportRequest struct {
	Workspace string  `json:"workspace,omitempty"`
	Format    string  `json:"format"`
	GPS       *ai.GPS `json:"gps,omitempty"`
}
