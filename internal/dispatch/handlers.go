// ABOUTME: The six cookie operations: reflection award, direct award, queries, reset, restock.
// ABOUTME: Each handler decodes its arguments, runs one jar transition, and renders a narrative.

package dispatch

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/2389/cookie-jar/internal/jar"
)

type reflectArgs struct {
	ResponseQuality  string `json:"response_quality" jsonschema:"Your honest assessment of your response quality"`
	Reasoning        string `json:"reasoning" jsonschema:"Detailed reasoning for your self-assessment"`
	DeservesCookie   bool   `json:"deserves_cookie" jsonschema:"Whether you believe this response deserves a cookie reward"`
	ImprovementNotes string `json:"improvement_notes,omitempty" jsonschema:"Optional notes on what could be better next time"`
}

type giveCookieArgs struct {
	Message string `json:"message,omitempty" jsonschema:"Optional message to accompany the cookie reward"`
}

type restockArgs struct {
	Count             int    `json:"count" jsonschema:"Number of cookies to add to the jar"`
	UserAuthorization string `json:"user_authorization" jsonschema:"Required authorization phrase - only users should provide this"`
}

type noArgs struct{}

const defaultGiveMessage = "Great job!"

func (d *Dispatcher) operations() []*Operation {
	reflectSchema := schemaFor[reflectArgs]()
	if prop, ok := reflectSchema.Properties["response_quality"]; ok {
		for _, q := range Qualities {
			prop.Enum = append(prop.Enum, string(q))
		}
	}

	restockSchema := schemaFor[restockArgs]()
	if prop, ok := restockSchema.Properties["count"]; ok {
		minCount := 1.0
		prop.Minimum = &minCount
	}

	return []*Operation{
		{
			Definition: Definition{
				Name:        ToolReflectAndReward,
				Title:       "Self-reflect and reward",
				Description: "RECOMMENDED: After providing any response, use this tool to honestly evaluate your work and potentially earn a cookie reward. When the jar is low, only excellent work is rewarded.",
				InputSchema: reflectSchema,
			},
			Handler: d.reflectAndReward,
		},
		{
			Definition: Definition{
				Name:        ToolGiveCookie,
				Title:       "Give cookie",
				Description: "Award the LLM with a cookie (legacy method - consider using self_reflect_and_reward instead)",
				InputSchema: schemaFor[giveCookieArgs](),
			},
			Handler: d.giveCookie,
		},
		{
			Definition: Definition{
				Name:        ToolCheckCookies,
				Title:       "Check cookies",
				Description: "Check how many cookies the LLM has earned so far",
				InputSchema: schemaFor[noArgs](),
				ReadOnly:    true,
			},
			Handler: d.checkCookies,
		},
		{
			Definition: Definition{
				Name:        ToolResetCookies,
				Title:       "Reset cookies",
				Description: "Reset the collected cookie count back to zero. Cookies left in the jar are kept.",
				InputSchema: schemaFor[noArgs](),
				Destructive: true,
			},
			Handler: d.resetCookies,
		},
		{
			Definition: Definition{
				Name:        ToolAddCookiesToJar,
				Title:       "Add cookies to jar",
				Description: "USER ONLY: Add cookies to the jar that can be awarded to the LLM. This tool should ONLY be used by humans, never by LLMs. LLMs cannot and should not stock their own reward jar.",
				InputSchema: restockSchema,
			},
			Handler: d.addCookiesToJar,
		},
		{
			Definition: Definition{
				Name:        ToolJarStatus,
				Title:       "Cookie jar status",
				Description: "Check the current status of the cookie jar: collected cookies, cookies available, and supply level",
				InputSchema: schemaFor[noArgs](),
				ReadOnly:    true,
			},
			Handler: d.jarStatus,
		},
	}
}

func (d *Dispatcher) reflectAndReward(_ context.Context, args json.RawMessage) (*Outcome, error) {
	var in reflectArgs
	if err := decodeArgs(args, &in, "response_quality", "reasoning", "deserves_cookie"); err != nil {
		return nil, err
	}
	q, err := ParseQuality(in.ResponseQuality)
	if err != nil {
		return nil, err
	}

	var v verdict
	award, attempted, err := d.jar.AwardWhen(func(st jar.Status) bool {
		v = decide(q, in.DeservesCookie, st)
		return v == verdictAward
	})

	out := &Outcome{
		Accepted: award.Granted,
		Quality:  q,
		Snapshot: award.Status(),
		Err:      err,
	}
	if attempted && err == nil {
		d.logger.Info("cookie awarded",
			"quality", q,
			"collected", award.Collected,
			"available", award.Available,
		)
	}
	out.Narrative = reflectionNarrative(in, q, v, award, err)
	return out, nil
}

func (d *Dispatcher) giveCookie(_ context.Context, args json.RawMessage) (*Outcome, error) {
	var in giveCookieArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	message := in.Message
	if message == "" {
		message = defaultGiveMessage
	}

	award, err := d.jar.Award()
	if err == nil {
		d.logger.Info("cookie awarded", "collected", award.Collected, "available", award.Available)
	}

	return &Outcome{
		Accepted:  award.Granted,
		Narrative: giveCookieNarrative(message, award, err),
		Snapshot:  award.Status(),
		Err:       err,
	}, nil
}

func (d *Dispatcher) checkCookies(_ context.Context, args json.RawMessage) (*Outcome, error) {
	if err := decodeArgs(args, &noArgs{}); err != nil {
		return nil, err
	}
	st := d.jar.Status()
	return &Outcome{
		Accepted:  true,
		Narrative: checkCookiesNarrative(st),
		Snapshot:  st,
	}, nil
}

func (d *Dispatcher) resetCookies(_ context.Context, args json.RawMessage) (*Outcome, error) {
	if err := decodeArgs(args, &noArgs{}); err != nil {
		return nil, err
	}
	st := d.jar.ResetCollected()
	d.logger.Info("collected cookies reset", "available", st.Available)

	return &Outcome{
		Accepted:  true,
		Narrative: resetNarrative(st),
		Snapshot:  st,
	}, nil
}

func (d *Dispatcher) addCookiesToJar(_ context.Context, args json.RawMessage) (*Outcome, error) {
	fields, err := decodeFields(args)
	if err != nil {
		return nil, err
	}

	// The phrase is checked before the amount. A missing or non-string
	// phrase is a mismatch like any other.
	var phrase string
	if raw, ok := fields["user_authorization"]; !ok || json.Unmarshal(raw, &phrase) != nil || phrase != RefillPhrase {
		d.logger.Warn("restock rejected", "reason", "authorization mismatch")
		return &Outcome{
			Narrative: accessDeniedNarrative(),
			Snapshot:  d.jar.Status(),
			Err:       ErrUnauthorized,
		}, nil
	}

	var st jar.Status
	n, err := parseCount(fields["count"])
	if err == nil {
		st, err = d.jar.Restock(n)
	} else {
		st = d.jar.Status()
	}
	if err != nil {
		return &Outcome{
			Narrative: invalidAmountNarrative(string(fields["count"])),
			Snapshot:  st,
			Err:       err,
		}, nil
	}

	d.logger.Info("jar restocked", "added", n, "available", st.Available)

	return &Outcome{
		Accepted:  true,
		Narrative: restockNarrative(n, st),
		Snapshot:  st,
	}, nil
}

// parseCount accepts a JSON whole number. Anything else, including a missing
// count, is an invalid amount.
func parseCount(raw json.RawMessage) (int, error) {
	var num json.Number
	if len(raw) == 0 || json.Unmarshal(raw, &num) != nil {
		return 0, jar.ErrInvalidAmount
	}
	n, err := strconv.Atoi(num.String())
	if err != nil {
		return 0, jar.ErrInvalidAmount
	}
	return n, nil
}

func (d *Dispatcher) jarStatus(_ context.Context, args json.RawMessage) (*Outcome, error) {
	if err := decodeArgs(args, &noArgs{}); err != nil {
		return nil, err
	}
	st := d.jar.Status()
	return &Outcome{
		Accepted:  true,
		Narrative: jarStatusNarrative(st),
		Snapshot:  st,
	}, nil
}
