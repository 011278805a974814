package omdb

// Response represents the OMDb API response.
type Response struct {
	Title    string `json:"Title"`
	Year     string `json:"Year"`
	Rated    string `json:"Rated"`
	Runtime  string `json:"Runtime"`
	Genre    string `json:"Genre"`
	Plot     string `json:"Plot"`
	Poster   string `json:"Poster"`
	ImdbID   string `json:"imdbID"`
	Type     string `json:"Type"`
	Response string `json:"Response"`
	Error    string `json:"Error,omitempty"`
}

// Details is the normalized title information used for stream descriptions.
type Details struct {
	ImdbID  string `json:"imdbId"`
	Title   string `json:"title"`
	Year    string `json:"year,omitempty"`
	Type    string `json:"type,omitempty"`
	Runtime string `json:"runtime,omitempty"`
	Genre   string `json:"genre,omitempty"`
	Plot    string `json:"plot,omitempty"`
	Poster  string `json:"poster,omitempty"`
}
