package roster

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/element"
)

// Elements is the part of the element service an import needs.
type Elements interface {
	Query(ctx context.Context, filter *element.QueryFilter, ordering []core.DBOrdering) ([]element.Element, error)
	Create(ctx context.Context, ne element.NewElement, ownerID string) (element.Element, error)
	Update(ctx context.Context, id string, ue element.UpdateElement) (element.Element, error)
}

// Result summarises an import.
type Result struct {
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Unchanged int      `json:"unchanged"`
	Retired   int      `json:"retired"`
	Errors    []string `json:"errors"`
}

// Importer matches records to existing elements of a kind by source id, falling back on the name.
type Importer struct {
	elements Elements
	logger   core.Logger
}

func NewImporter(elements Elements, logger core.Logger) *Importer {
	return &Importer{elements: elements, logger: logger}
}

// Importable kinds: the ones school information systems export.
func Importable(kind element.Kind) bool {
	switch kind {
	case element.KindStaff, element.KindPupil, element.KindLocation, element.KindSubject:
		return true
	}
	return false
}

// Import creates and updates elements of `kind` from records. With retire set,
// current elements of that kind which carry a source id absent from the records stop being current.
func (imp *Importer) Import(ctx context.Context, kind element.Kind, records []Record, retire bool) (Result, error) {
	res := Result{Errors: []string{}}
	if !Importable(kind) {
		return res, errors.Errorf("cannot import %q elements", kind)
	}
	existing, err := imp.elements.Query(ctx, &element.QueryFilter{Kinds: []string{string(kind)}}, nil)
	if err != nil {
		return res, errors.Wrap(err, "loading existing elements")
	}
	bySource := make(map[string]element.Element)
	byName := make(map[string]element.Element)
	remember := func(el element.Element) {
		if el.SourceID != "" {
			bySource[el.SourceID] = el
		}
		if _, ok := byName[el.Name]; !ok || el.SourceID == "" {
			byName[el.Name] = el
		}
	}
	for _, el := range existing {
		remember(el)
	}

	seen := make(map[string]bool)
	for _, rec := range records {
		if rec.Name == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: missing name", rec.Line))
			continue
		}
		if rec.SourceID != "" {
			if seen[rec.SourceID] {
				res.Errors = append(res.Errors, fmt.Sprintf("line %d: duplicate id %s", rec.Line, rec.SourceID))
				continue
			}
			seen[rec.SourceID] = true
		}

		el, found := imp.match(rec, bySource, byName)
		if !found {
			created, err := imp.elements.Create(ctx, element.NewElement{
				Name:      rec.Name,
				Kind:      kind,
				SourceID:  rec.SourceID,
				Email:     rec.Email,
				Initials:  rec.Initials,
				ShortName: rec.ShortName,
			}, "")
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", rec.Line, err))
				continue
			}
			remember(created)
			res.Created++
			continue
		}
		if el.SourceID != "" {
			seen[el.SourceID] = true
		}

		if ue, changed := diff(el, rec); changed {
			updated, err := imp.elements.Update(ctx, el.ID, ue)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", rec.Line, err))
				continue
			}
			remember(updated)
			res.Updated++
		} else {
			res.Unchanged++
		}
	}

	if retire {
		notCurrent := false
		for _, el := range existing {
			if el.SourceID == "" || !el.Current || seen[el.SourceID] {
				continue
			}
			if _, err := imp.elements.Update(ctx, el.ID, element.UpdateElement{Current: &notCurrent}); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("retiring %s: %v", el.Name, err))
				continue
			}
			res.Retired++
		}
	}
	if imp.logger != nil {
		imp.logger.Info(fmt.Sprintf("imported %s", kind), map[string]interface{}{
			"created": res.Created, "updated": res.Updated, "retired": res.Retired, "errors": len(res.Errors),
		})
	}
	return res, nil
}

// match finds the element a record describes: by source id, else by name. A name match is refused
// when both sides carry different source ids, as they are then two people sharing a name.
func (imp *Importer) match(rec Record, bySource, byName map[string]element.Element) (element.Element, bool) {
	if rec.SourceID != "" {
		if el, ok := bySource[rec.SourceID]; ok {
			return el, true
		}
	}
	el, ok := byName[rec.Name]
	if !ok || (rec.SourceID != "" && el.SourceID != "" && el.SourceID != rec.SourceID) {
		return element.Element{}, false
	}
	return el, true
}

// diff returns the update bringing el in line with rec. Blank record fields leave the element alone.
func diff(el element.Element, rec Record) (element.UpdateElement, bool) {
	var ue element.UpdateElement
	var changed bool
	if rec.Name != el.Name {
		ue.Name = rec.Name
		changed = true
	}
	set := func(dst **string, val, cur string) {
		if val != "" && val != cur {
			v := val
			*dst = &v
			changed = true
		}
	}
	set(&ue.SourceID, rec.SourceID, el.SourceID)
	set(&ue.Email, rec.Email, el.Email)
	set(&ue.Initials, rec.Initials, el.Initials)
	set(&ue.ShortName, rec.ShortName, el.ShortName)
	if !el.Current {
		current := true
		ue.Current = &current
		changed = true
	}
	return ue, changed
}
