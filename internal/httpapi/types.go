package httpapi

type ImportStatus struct {
	LastRunAt   string `json:"last_run_at"`
	LastOkAt    string `json:"last_ok_at"`
	LastError   string `json:"last_error"`
	LastFound   int    `json:"last_found"`
	LastNew     int    `json:"last_new"`
	LastUpdated int    `json:"last_updated"`
	Running     bool   `json:"running"`
}
