// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pdiddy/slr-engine/internal/llm"
)

// verdict is one entry of the model's "results" array.
type verdict struct {
	ID           string   `json:"id"`
	Decision     string   `json:"decision"`
	Reason       string   `json:"reason"`
	MatchedRules ruleList `json:"matched_rules"`
}

// ruleList accepts matched_rules as a list, a single string, or a
// comma-separated string.
type ruleList []string

func (l *ruleList) UnmarshalJSON(data []byte) error {
	res := gjson.ParseBytes(data)
	var out []string
	switch {
	case res.IsArray():
		for _, v := range res.Array() {
			if s := strings.TrimSpace(v.String()); s != "" {
				out = append(out, s)
			}
		}
	case res.Type == gjson.String:
		for _, part := range strings.Split(res.String(), ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	*l = out
	return nil
}

// parseVerdicts pulls the "results" array out of raw model output.
func parseVerdicts(raw string) ([]verdict, error) {
	obj, err := llm.ExtractObject(raw, "results")
	if err != nil {
		return nil, err
	}
	results := gjson.Get(obj, "results")
	if !results.IsArray() {
		return nil, fmt.Errorf("%w: \"results\" is not an array", llm.ErrNoJSON)
	}

	items := results.Array()
	verdicts := make([]verdict, len(items))
	for i, item := range items {
		if !item.IsObject() {
			continue
		}
		if err := json.Unmarshal([]byte(item.Raw), &verdicts[i]); err != nil {
			// A malformed entry degrades to an empty one.
			verdicts[i] = verdict{}
		}
	}
	return verdicts, nil
}

// fit pads vs with empty verdicts or truncates it to n entries.
func fit(vs []verdict, n int) []verdict {
	if len(vs) >= n {
		return vs[:n]
	}
	return append(vs, make([]verdict, n-len(vs))...)
}
