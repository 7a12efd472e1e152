package meta

import "time"

// graphTimeLayout is the timestamp format the Graph API uses
// (RFC3339 without the colon in the zone offset).
const graphTimeLayout = "2006-01-02T15:04:05-0700"

// ParseTime parses a Graph API timestamp, accepting plain RFC3339 as well.
// An unparsable or empty value yields the zero time rather than an error:
// webhook payloads are best-effort and a missing timestamp must not drop
// the event.
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(graphTimeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

type Page struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	AccessToken  string `json:"access_token"`
	Category     string `json:"category"`
	CategoryList []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"category_list"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
	InstagramBusinessAccount *struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"instagram_business_account"`
}

type Post struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	Story       string `json:"story"`
	CreatedTime string `json:"created_time"`
	Type        string `json:"type"`
	Likes       *struct {
		Summary struct {
			TotalCount int `json:"total_count"`
		} `json:"summary"`
	} `json:"likes"`
	Comments *struct {
		Summary struct {
			TotalCount int `json:"total_count"`
		} `json:"summary"`
	} `json:"comments"`
	Shares *struct {
		Count int `json:"count"`
	} `json:"shares"`
	PermalinkURL string `json:"permalink_url"`
	FullPicture  string `json:"full_picture"`
}

// LikeCount returns the like summary count, tolerating its absence.
func (p Post) LikeCount() int {
	if p.Likes == nil {
		return 0
	}
	return p.Likes.Summary.TotalCount
}

// CommentCount returns the comment summary count, tolerating its absence.
func (p Post) CommentCount() int {
	if p.Comments == nil {
		return 0
	}
	return p.Comments.Summary.TotalCount
}

// ShareCount returns the share count, tolerating its absence.
func (p Post) ShareCount() int {
	if p.Shares == nil {
		return 0
	}
	return p.Shares.Count
}

type Review struct {
	Reviewer struct {
		Name string `json:"name"`
		ID   string `json:"id"`
	} `json:"reviewer"`
	Rating             int    `json:"rating"`
	RecommendationType string `json:"recommendation_type"`
	ReviewText         string `json:"review_text"`
	CreatedTime        string `json:"created_time"`
	OpenGraphStory     *struct {
		ID string `json:"id"`
	} `json:"open_graph_story"`
}

// ExternalID returns the stable identifier for a review. Ratings have no
// top-level ID; the open graph story ID is the platform's key for them.
func (r Review) ExternalID() string {
	if r.OpenGraphStory != nil {
		return r.OpenGraphStory.ID
	}
	return ""
}

type Insight struct {
	Name   string `json:"name"`
	Period string `json:"period"`
	Values []struct {
		Value   float64 `json:"value"`
		EndTime string  `json:"end_time"`
	} `json:"values"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PublishRequest is the body for publishing a post to a page feed.
type PublishRequest struct {
	Message              string `json:"message"`
	Link                 string `json:"link,omitempty"`
	Picture              string `json:"picture,omitempty"`
	ScheduledPublishTime int64  `json:"scheduled_publish_time,omitempty"`
}

// Token is the result of an OAuth code exchange or a token refresh.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
