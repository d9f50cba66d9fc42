package sinks

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"

	"spinarena/server/logging"
)

// ConsoleSink writes one line per event, led by the round and tick so a
// round's events read as a timeline:
//
//	r-42 t=0318 warn  combat.damage actor=combatant:2 targets=player:0 payload={...}
type ConsoleSink struct {
	logger *log.Logger
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = io.Discard
	}
	return &ConsoleSink{logger: log.New(w, "", log.LstdFlags)}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	var line strings.Builder
	round := event.RoundID
	if round == "" {
		round = "-"
	}
	line.WriteString(round)
	line.WriteString(" t=")
	tick := strconv.FormatUint(event.Tick, 10)
	if pad := 4 - len(tick); pad > 0 {
		line.WriteString(strings.Repeat("0", pad))
	}
	line.WriteString(tick)
	line.WriteByte(' ')
	line.WriteString(padRight(event.Severity.String(), 5))
	line.WriteByte(' ')
	line.WriteString(string(event.Type))

	if ref := entityLabel(event.Actor); ref != "" {
		line.WriteString(" actor=")
		line.WriteString(ref)
	}
	if len(event.Targets) > 0 {
		labels := make([]string, len(event.Targets))
		for i, target := range event.Targets {
			labels[i] = entityLabel(target)
		}
		line.WriteString(" targets=")
		line.WriteString(strings.Join(labels, ","))
	}
	if event.Payload != nil {
		data, err := json.Marshal(event.Payload)
		if err != nil {
			return err
		}
		line.WriteString(" payload=")
		line.Write(data)
	}
	if len(event.Extra) > 0 {
		keys := make([]string, 0, len(event.Extra))
		for k := range event.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			line.WriteByte(' ')
			line.WriteString(k)
			line.WriteByte('=')
			line.WriteString(formatValue(event.Extra[k]))
		}
	}
	s.logger.Print(line.String())
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func entityLabel(ref logging.EntityRef) string {
	switch {
	case ref.ID == "" && ref.Kind == "":
		return ""
	case ref.ID == "":
		return string(ref.Kind)
	case ref.Kind == "":
		return ref.ID
	default:
		return string(ref.Kind) + ":" + ref.ID
	}
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "?"
	}
	return string(data)
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
