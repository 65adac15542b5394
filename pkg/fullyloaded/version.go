package fullyloaded

// Release is one entry of the version history shown in the app.
type Release struct {
	Version  string   `json:"version"`
	Date     string   `json:"date"`
	Features []string `json:"features"`
}

// VersionHistory lists releases, newest first.
var VersionHistory = []Release{
	{
		Version: "1.0.0",
		Date:    "2024-03-19",
		Features: []string{
			"Added swipe-to-edit functionality for mobile devices",
			"Improved UI responsiveness and animations",
			"Enhanced dark mode support",
			"Added checklist item capacity indicators",
		},
	},
}

var LatestVersion = VersionHistory[0].Version
