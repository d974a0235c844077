package core

import (
	"fmt"
	"sort"
)

var shortMonths = [...]string{"Jan", "Fév", "Mar", "Avr", "Mai", "Jui", "Jui", "Aoû", "Sep", "Oct", "Nov", "Déc"}

// SortByDate returns a copy of bills ordered earliest first. The sort is
// stable; bills whose date does not parse keep their relative order at the end.
func SortByDate(bills []Bill) []Bill {
	out := make([]Bill, len(bills))
	copy(out, bills)
	sort.SliceStable(out, func(i, j int) bool {
		di, errI := ParseDate(out[i].Date)
		dj, errJ := ParseDate(out[j].Date)
		switch {
		case errI != nil:
			return false
		case errJ != nil:
			return true
		}
		return di.Before(dj)
	})
	return out
}

// FormatDate renders a bill date the way the bills table shows it,
// e.g. "2004-04-04" as "4 Avr. 04".
func FormatDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %s. %02d", t.Day(), shortMonths[t.Month()-1], t.Year()%100), nil
}

// FormatStatus returns the label shown for a bill status.
func FormatStatus(s Status) string {
	switch s {
	case StatusPending:
		return "En attente"
	case StatusAccepted:
		return "Accepté"
	case StatusRefused:
		return "Refused"
	}
	return string(s)
}
