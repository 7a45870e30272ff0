package model

// FetchResponse is the outcome of an HTTP fetch that reached the server
type FetchResponse struct {
	URL         string `json:"url"`
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"-"`
	FromCache   bool   `json:"from_cache"`
}

// OK reports whether the server answered 200
func (r *FetchResponse) OK() bool {
	return r != nil && r.StatusCode == 200
}
