package domain

import "time"

type SampleOffer struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type PingResult struct {
	Success      bool          `json:"success"`
	Message      string        `json:"message,omitempty"`
	Error        string        `json:"error,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
	ResponseTime string        `json:"responseTime,omitempty"`
	RecordsFound int           `json:"recordsFound"`
	SampleData   []SampleOffer `json:"sampleData,omitempty"`
}

type KeepAliveResult struct {
	Success      bool      `json:"success"`
	Message      string    `json:"message,omitempty"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	RecordsFound int       `json:"recordsFound"`
}
