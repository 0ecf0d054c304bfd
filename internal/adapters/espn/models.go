package espn

import (
	"strings"
	"time"
)

// Time unmarshals both RFC3339 timestamps and the shorter
// "2006-01-02T15:04Z" form the scoreboard uses.
type Time struct {
	time.Time
}

var timeLayouts = []string{ //nolint:gochecknoglobals // parse table
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	var lastErr error
	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}
		lastErr = err
	}
	return lastErr
}

type scoreboardResponse struct {
	Events []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Date Time   `json:"date"`
	} `json:"events"`
}

type teamRef struct {
	ID           string `json:"id"`
	Abbreviation string `json:"abbreviation"`
}

type summaryResponse struct {
	Header struct {
		ID     string `json:"id"`
		Season struct {
			Year int `json:"year"`
			Type int `json:"type"`
		} `json:"season"`
		Competitions []struct {
			Status struct {
				Type struct {
					Name string `json:"name"`
				} `json:"type"`
			} `json:"status"`
		} `json:"competitions"`
	} `json:"header"`
	Boxscore struct {
		Teams []struct {
			Team teamRef `json:"team"`
		} `json:"teams"`
	} `json:"boxscore"`
	Drives struct {
		Previous []driveJSON `json:"previous"`
	} `json:"drives"`
}

type driveJSON struct {
	ID     string     `json:"id"`
	Result string     `json:"result"`
	Team   teamRef    `json:"team"`
	Plays  []playJSON `json:"plays"`
}

type spotJSON struct {
	Team           teamRef `json:"team"`
	YardLine       int     `json:"yardLine"`
	PossessionText string  `json:"possessionText"`
	YardsToEndzone int     `json:"yardsToEndzone"`
	Distance       int     `json:"distance"`
	Down           int     `json:"down"`
	ShortDownText  string  `json:"shortDownDistanceText"`
}

type playJSON struct {
	ID    string   `json:"id"`
	Text  string   `json:"text"`
	Start spotJSON `json:"start"`
	End   spotJSON `json:"end"`
	Clock struct {
		DisplayValue string `json:"displayValue"`
	} `json:"clock"`
	Period struct {
		Number int `json:"number"`
	} `json:"period"`
	Type struct {
		Text string `json:"text"`
	} `json:"type"`
	AwayScore int `json:"awayScore"`
	HomeScore int `json:"homeScore"`
}
