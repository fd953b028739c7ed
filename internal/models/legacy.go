package models

import "encoding/json"

// Sidecars written by the first version of the tool used different key
// names for the caption and the base URL. Both are still accepted on read.

func (r *ImageRecord) UnmarshalJSON(data []byte) error {
	type record ImageRecord
	aux := struct {
		*record
		LegacyCaption *string `json:"insta_reel_caption"`
	}{record: (*record)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.Caption == nil {
		r.Caption = aux.LegacyCaption
	}
	return nil
}

func (s *ResultSet) UnmarshalJSON(data []byte) error {
	type resultSet ResultSet
	aux := struct {
		*resultSet
		LegacyBaseURL string `json:"ngrok_base_url"`
	}{resultSet: (*resultSet)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if s.BaseURL == "" {
		s.BaseURL = aux.LegacyBaseURL
	}
	return nil
}
