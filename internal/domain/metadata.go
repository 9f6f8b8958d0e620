package domain

// MetadataSnapshot describes the rig's current topology: named tracks with
// their clip slots, plus named scenes. A new snapshot fully replaces the
// previous one — metadata is never merged field-by-field.
type MetadataSnapshot struct {
	Tracks []Track `json:"tracks"`
	Scenes []Scene `json:"scenes,omitempty"`
}

type Track struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Clips []Clip `json:"clips"`
}

type Clip struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	IsPlaying   bool   `json:"is_playing"`
	IsTriggered bool   `json:"is_triggered"`
}

type Scene struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}
