package papers

import "time"

// PaperResponse is the outward-facing representation of a paper row.
type PaperResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	UploadedBy  string    `json:"uploadedBy"`
	UploadedAt  time.Time `json:"uploadedAt"`
	AdoptedFrom *string   `json:"adoptedFrom"`
	Username    string    `json:"username,omitempty"`
}

func toResponse(p Paper) PaperResponse {
	resp := PaperResponse{
		ID:         p.ID,
		Name:       p.Name,
		Title:      p.Title,
		UploadedBy: p.UploadedBy,
		UploadedAt: p.UploadedAt,
	}
	if p.AdoptedFrom != "" {
		origin := p.AdoptedFrom
		resp.AdoptedFrom = &origin
	}
	return resp
}

func toResponses(papers []Paper) []PaperResponse {
	out := make([]PaperResponse, 0, len(papers))
	for _, p := range papers {
		out = append(out, toResponse(p))
	}
	return out
}

func toListingResponses(listings []Listing) []PaperResponse {
	out := make([]PaperResponse, 0, len(listings))
	for _, l := range listings {
		resp := toResponse(l.Paper)
		resp.Username = l.Username
		out = append(out, resp)
	}
	return out
}
