package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/gatling-contrib/prombridge/internal/bridge"
	"github.com/gatling-contrib/prombridge/internal/bridge/ingest"
)

// eventRecord is the newline-delimited JSON wire form produced by the host
// instrumentation, one record per line.
type eventRecord struct {
	Type       string `json:"type"`
	Scenario   string `json:"scenario,omitempty"`
	Name       string `json:"name,omitempty"`
	Group      string `json:"group,omitempty"`
	Status     string `json:"status,omitempty"`
	Start      int64  `json:"start,omitempty"`
	End        int64  `json:"end,omitempty"`
	Simulation string `json:"simulation,omitempty"`
	RunId      string `json:"runId,omitempty"`
}

// readEvents feeds decoded events to the controller until the stream ends.
// Malformed lines and unknown event types are dropped, never fatal.
func readEvents(reader io.Reader, controller *bridge.Controller) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record eventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		event, info := record.toEvent()
		if event == nil {
			continue
		}
		controller.Handle(event, info)
	}
	if err := scanner.Err(); err != nil {
		log.Warnf("Event stream closed with error: %s", err)
	}
}

func (r eventRecord) toEvent() (ingest.Event, *bridge.RunInfo) {
	var info *bridge.RunInfo
	if r.Simulation != "" || r.RunId != "" {
		info = &bridge.RunInfo{Simulation: r.Simulation, RunId: r.RunId}
	}
	switch r.Type {
	case "userStart":
		return ingest.UserStart{Scenario: r.Scenario}, info
	case "userEnd":
		return ingest.UserEnd{Scenario: r.Scenario}, info
	case "response":
		return ingest.Response{
			Name:             r.Name,
			Group:            r.Group,
			Status:           r.Status,
			StartTimestampMs: r.Start,
			EndTimestampMs:   r.End,
		}, info
	}
	return nil, info
}
