package services

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/Dest0re/backend-school2022/internal/domain/entities"
)

// Fragment rendering is kept apart from the aggregation state machines: the
// machines decide what happens (open, separator, close), this file decides
// what the bytes look like.

func jsonString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		// json.Marshal of a string cannot fail.
		panic(err)
	}
	return string(b)
}

func jsonOptString(p *string) string {
	if p == nil {
		return "null"
	}
	return jsonString(*p)
}

func jsonOptInt(p *int64) string {
	if p == nil {
		return "null"
	}
	return strconv.FormatInt(*p, 10)
}

func jsonDate(t time.Time) string {
	return `"` + entities.FormatDate(t) + `"`
}

// renderOffer renders the single complete object an offer emits. The
// children key is present (and null) only when the surrounding stream
// includes children arrays; flat snapshots omit it entirely.
func renderOffer(rev entities.Revision, parentID *string, withChildrenKey bool) string {
	var b strings.Builder
	b.WriteString(`{"id": `)
	b.WriteString(jsonString(rev.UnitID))
	b.WriteString(`, "name": `)
	b.WriteString(jsonString(rev.Name))
	b.WriteString(`, "date": `)
	b.WriteString(jsonDate(rev.Date))
	b.WriteString(`, "type": `)
	b.WriteString(jsonString(string(rev.Type)))
	b.WriteString(`, "price": `)
	b.WriteString(jsonOptInt(rev.Price))
	b.WriteString(`, "parentId": `)
	b.WriteString(jsonOptString(parentID))
	if withChildrenKey {
		b.WriteString(`, "children": null`)
	}
	b.WriteString(`}`)
	return b.String()
}

// renderCategoryOpen renders everything of a category object up to (and not
// including) its closing brace. The aggregated price and date are not known
// yet; they arrive with the closing fragment.
func renderCategoryOpen(rev entities.Revision, parentID *string, includeChildren bool) string {
	var b strings.Builder
	b.WriteString(`{"id": `)
	b.WriteString(jsonString(rev.UnitID))
	b.WriteString(`, "name": `)
	b.WriteString(jsonString(rev.Name))
	b.WriteString(`, "type": `)
	b.WriteString(jsonString(string(rev.Type)))
	b.WriteString(`, "parentId": `)
	b.WriteString(jsonOptString(parentID))
	if includeChildren {
		b.WriteString(`, "children": [`)
	}
	return b.String()
}

// renderCategoryClose closes the children array (when one was opened) and
// merges the aggregated trailer into the same object.
func renderCategoryClose(price *int64, date time.Time, includeChildren bool) string {
	var b strings.Builder
	if includeChildren {
		b.WriteString(`]`)
	}
	b.WriteString(`, "price": `)
	b.WriteString(jsonOptInt(price))
	b.WriteString(`, "date": `)
	b.WriteString(jsonDate(date))
	b.WriteString(`}`)
	return b.String()
}

const childSeparator = ", "
