package domain

import "go.mongodb.org/mongo-driver/bson"

// ScheduleEntry is one {hour?, minute} firing tuple. A nil Hour means "every
// hour" and expands to all 24 hours at Minute in the job index (spec §4.4).
type ScheduleEntry struct {
	Hour   *int `bson:"hour,omitempty" json:"hour,omitempty"`
	Minute int  `bson:"minute" json:"minute"`
}

// RetryPolicy controls attempt count and inter-attempt backoff for one step.
type RetryPolicy struct {
	Retries  int     `bson:"retries" json:"retries"`
	DelaySec float64 `bson:"delay_sec" json:"delay_sec"`
	Backoff  float64 `bson:"backoff,omitempty" json:"backoff,omitempty"`
}

// WhenPredicate gates a step to a subset of local hours/minutes. Missing
// fields are "true"; all present fields must pass (spec §4.6.1).
type WhenPredicate struct {
	HourIn   []int `bson:"hour_in,omitempty" json:"hour_in,omitempty"`
	MinuteIn []int `bson:"minute_in,omitempty" json:"minute_in,omitempty"`
}

// Satisfies reports whether the local (hour, minute) passes every predicate
// present on w. An empty-but-non-nil slice (e.g. hour_in: []) matches nothing.
func (w *WhenPredicate) Satisfies(hour, minute int) bool {
	if w == nil {
		return true
	}
	if w.HourIn != nil && !containsInt(w.HourIn, hour) {
		return false
	}
	if w.MinuteIn != nil && !containsInt(w.MinuteIn, minute) {
		return false
	}
	return true
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// Step is one action within a job's chain — currently only HTTP is
// supported; any other Type is skipped with "skipped_unsupported" (§4.6).
type Step struct {
	Type              string            `bson:"type" json:"type"`
	Method            string            `bson:"method" json:"method"`
	URL               string            `bson:"url" json:"url"`
	Headers           map[string]string `bson:"headers,omitempty" json:"headers,omitempty"`
	Params            map[string]string `bson:"params,omitempty" json:"params,omitempty"`
	Body              any               `bson:"body,omitempty" json:"body,omitempty"`
	TimeoutSec        *int              `bson:"timeout_sec,omitempty" json:"timeout_sec,omitempty"`
	Retry             *RetryPolicy      `bson:"retry,omitempty" json:"retry,omitempty"`
	When              *WhenPredicate    `bson:"when,omitempty" json:"when,omitempty"`
	ContinueOnFailure bool              `bson:"continue_on_failure,omitempty" json:"continue_on_failure,omitempty"`
	UseCurl           bool              `bson:"use_curl,omitempty" json:"use_curl,omitempty"`
	UseCloudscraper   bool              `bson:"use_cloudscraper,omitempty" json:"use_cloudscraper,omitempty"`
}

// Job is a declarative HTTP action chain fired on a schedule. A job either
// carries Schedules (one or more {hour?, minute} tuples) or a flat Hour/Minute
// pair; it either carries Actions (an ordered step chain) or a single Flat
// step treated as a one-step chain (§3, §4.6). Flat has no "flat" bson tag:
// its fields live at the top level of the Mongo document, the same keys a
// Step decodes from directly; UnmarshalBSON/MarshalBSON below handle that
// layout explicitly, bypassing the struct-tag-driven default codec.
type Job struct {
	JobID     string          `bson:"job_id" json:"job_id"`
	Name      string          `bson:"name" json:"name"`
	Enabled   bool            `bson:"enabled" json:"enabled"`
	Schedules []ScheduleEntry `bson:"schedules,omitempty" json:"schedules,omitempty"`
	Hour      *int            `bson:"hour,omitempty" json:"hour,omitempty"`
	Minute    *int            `bson:"minute,omitempty" json:"minute,omitempty"`
	Actions   []Step          `bson:"actions,omitempty" json:"actions,omitempty"`
	Flat      *Step           `json:"flat,omitempty"`

	TimeoutSec *int         `bson:"timeout_sec,omitempty" json:"timeout_sec,omitempty"`
	Retry      *RetryPolicy `bson:"retry,omitempty" json:"retry,omitempty"`
}

// jobDoc is Job without Flat, used by UnmarshalBSON/MarshalBSON to read and
// write the job-level fields without recursing back into Job's own codec.
type jobDoc struct {
	JobID     string          `bson:"job_id"`
	Name      string          `bson:"name"`
	Enabled   bool            `bson:"enabled"`
	Schedules []ScheduleEntry `bson:"schedules,omitempty"`
	Hour      *int            `bson:"hour,omitempty"`
	Minute    *int            `bson:"minute,omitempty"`
	Actions   []Step          `bson:"actions,omitempty"`

	TimeoutSec *int         `bson:"timeout_sec,omitempty"`
	Retry      *RetryPolicy `bson:"retry,omitempty"`
}

// UnmarshalBSON decodes a job document. A flat job (no "actions") carries
// its single HTTP step's fields — method, url, headers, ... — directly on
// the top-level document rather than nested under a "flat" key, matching
// original_source/agent.py's job_doc.get("method")/.get("url") layout. The
// same raw document is decoded a second time as a Step and kept as Flat
// only when there are no actions and the step actually has a type or URL.
func (j *Job) UnmarshalBSON(data []byte) error {
	var doc jobDoc
	if err := bson.Unmarshal(data, &doc); err != nil {
		return err
	}
	j.JobID = doc.JobID
	j.Name = doc.Name
	j.Enabled = doc.Enabled
	j.Schedules = doc.Schedules
	j.Hour = doc.Hour
	j.Minute = doc.Minute
	j.Actions = doc.Actions
	j.TimeoutSec = doc.TimeoutSec
	j.Retry = doc.Retry
	j.Flat = nil

	if len(j.Actions) == 0 {
		var flat Step
		if err := bson.Unmarshal(data, &flat); err != nil {
			return err
		}
		if flat.Type != "" || flat.URL != "" {
			j.Flat = &flat
		}
	}
	return nil
}

// MarshalBSON mirrors UnmarshalBSON: a flat job's step fields are written
// at the top level of the document instead of under a nested "flat" key,
// so a round trip through Mongo matches what UnmarshalBSON expects to read.
func (j *Job) MarshalBSON() ([]byte, error) {
	doc, err := bson.Marshal(jobDoc{
		JobID:      j.JobID,
		Name:       j.Name,
		Enabled:    j.Enabled,
		Schedules:  j.Schedules,
		Hour:       j.Hour,
		Minute:     j.Minute,
		Actions:    j.Actions,
		TimeoutSec: j.TimeoutSec,
		Retry:      j.Retry,
	})
	if err != nil {
		return nil, err
	}
	if j.Flat == nil || len(j.Actions) > 0 {
		return doc, nil
	}

	flatDoc, err := bson.Marshal(j.Flat)
	if err != nil {
		return nil, err
	}
	return mergeTopLevelBSON(doc, flatDoc)
}

// mergeTopLevelBSON concatenates two encoded documents' top-level elements,
// base first; a key set in both (such as timeout_sec or retry) appears twice
// in the result.
func mergeTopLevelBSON(base, overlay []byte) ([]byte, error) {
	var baseD, overlayD bson.D
	if err := bson.Unmarshal(base, &baseD); err != nil {
		return nil, err
	}
	if err := bson.Unmarshal(overlay, &overlayD); err != nil {
		return nil, err
	}
	return bson.Marshal(append(baseD, overlayD...))
}

// Chain returns the ordered steps to execute for this job: Actions if set,
// else the flat spec as a one-step chain (§4.6, last paragraph).
func (j *Job) Chain() []Step {
	if len(j.Actions) > 0 {
		return j.Actions
	}
	if j.Flat != nil {
		return []Step{*j.Flat}
	}
	return nil
}

// ScheduleEntries normalizes schedules/flat-hour-minute into a uniform list.
// A job with neither schedules nor hour/minute defaults to (nil, 0) — every
// hour at minute 0 (spec §8 boundary case).
func (j *Job) ScheduleEntries() []ScheduleEntry {
	if len(j.Schedules) > 0 {
		return j.Schedules
	}
	return []ScheduleEntry{{Hour: j.Hour, Minute: intOrZero(j.Minute)}}
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
