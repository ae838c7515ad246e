package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Dest0re/backend-school2022/internal/domain/entities"
	"github.com/Dest0re/backend-school2022/internal/domain/ports"
)

// EmitFunc receives one output fragment. Returning an error aborts the
// stream; the engine stops issuing storage queries promptly after that.
type EmitFunc func(fragment string) error

// aggregate is the bottom-up result of a finished sub-machine: the sum of
// its descendant leaf prices, the number of those leaves, and the maximum
// revision date seen in the subtree. It is carried only by the terminal
// transition, so an unfinished machine's result is not observable.
type aggregate struct {
	priceSum  int64
	leafCount int64
	date      time.Time
}

// step is the tagged outcome of one machine transition: exactly one of a
// text fragment to emit, a child machine to push, or the terminal result.
// The zero step means "nothing to do, advance me again".
type step struct {
	fragment string
	child    machine
	done     bool
	result   aggregate
}

func fragmentStep(s string) step  { return step{fragment: s} }
func childStep(m machine) step    { return step{child: m} }
func doneStep(res aggregate) step { return step{done: true, result: res} }

// machine is one node's sub-machine in the subtree walk. advance performs a
// single transition; machines never call each other, the driver owns the
// stack.
type machine interface {
	advance(ctx context.Context) (step, error)
}

// waiter is implemented by machines that fold finished children into a
// running aggregate.
type waiter interface {
	childDone(res aggregate)
}

// Aggregator streams an aggregated subtree as JSON fragments without
// materializing the subtree: memory is bounded by tree depth, and fragments
// are handed to the consumer as soon as they are complete. One aggregator is
// built per request on top of that request's store view.
type Aggregator struct {
	reader   ports.RevisionReader
	resolver *Resolver
	budget   time.Duration

	// started arms the budget clock at the first fragment any stream of
	// this aggregator emits. Collectors that run several streams per
	// request (timeline, sales) therefore share one clock.
	started time.Time
}

// NewAggregator creates an Aggregator. budget is the wall-clock limit for
// the aggregator's streaming, measured from the first fragment it emits;
// zero disables it.
func NewAggregator(reader ports.RevisionReader, budget time.Duration) *Aggregator {
	return &Aggregator{
		reader:   reader,
		resolver: NewResolver(reader),
		budget:   budget,
	}
}

// Stream walks the subtree rooted at rootID as of the window and emits the
// fragments of one JSON object. With includeChildren false only the root
// object is emitted (children are still walked to compute the aggregates)
// and the children key is omitted.
//
// Returns entities.ErrNotFound if the root has no governing revision in the
// window and entities.ErrTimeout if the budget is exceeded mid-stream;
// fragments already emitted are not retracted.
func (a *Aggregator) Stream(ctx context.Context, rootID string, win entities.Window, includeChildren bool, emit EmitFunc) error {
	rev, err := a.reader.FindGoverningRevision(ctx, rootID, win)
	if err != nil {
		return fmt.Errorf("fetching root revision: %w", err)
	}
	if rev == nil {
		return fmt.Errorf("unit %q: %w", rootID, entities.ErrNotFound)
	}

	root := a.newMachine(rev.Type, rootID, win, true, includeChildren)
	return a.drive(ctx, root, emit)
}

// newMachine selects the sub-machine for a node by its persisted kind.
// emitObject controls whether this node's fragments reach the output at all;
// a flat root walks its children silently.
func (a *Aggregator) newMachine(t entities.UnitType, unitID string, win entities.Window, emitObject, includeChildren bool) machine {
	if t == entities.UnitTypeOffer {
		return &offerMachine{
			resolver:        a.resolver,
			id:              unitID,
			win:             win,
			emitObject:      emitObject,
			withChildrenKey: includeChildren,
		}
	}
	return &categoryMachine{
		owner:           a,
		resolver:        a.resolver,
		id:              unitID,
		win:             win,
		emitObject:      emitObject,
		includeChildren: includeChildren,
	}
}

// drive runs the explicit stack of active sub-machines until the root is
// done. Once the budget clock is armed it is checked on every transition,
// not only around emits: a flat walk produces long silent stretches between
// fragments and must still stop issuing storage queries promptly when the
// budget runs out.
func (a *Aggregator) drive(ctx context.Context, root machine, emit EmitFunc) error {
	stack := []machine{root}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if a.budget > 0 && !a.started.IsZero() && time.Since(a.started) > a.budget {
			return entities.ErrTimeout
		}

		st, err := stack[len(stack)-1].advance(ctx)
		if err != nil {
			return err
		}

		switch {
		case st.child != nil:
			stack = append(stack, st.child)

		case st.done:
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				if w, ok := stack[len(stack)-1].(waiter); ok {
					w.childDone(st.result)
				}
			}

		case st.fragment != "":
			if a.started.IsZero() {
				a.started = time.Now()
			}
			if err := emit(st.fragment); err != nil {
				return fmt.Errorf("emitting fragment: %w", err)
			}
		}
	}
	return nil
}

// offerMachine is the leaf sub-machine: a single terminal step that emits
// one complete object and finalizes with the offer's own price and date.
type offerMachine struct {
	resolver        *Resolver
	id              string
	win             entities.Window
	emitObject      bool
	withChildrenKey bool

	emitted bool
	result  aggregate
}

func (m *offerMachine) advance(ctx context.Context) (step, error) {
	if m.emitted {
		return doneStep(m.result), nil
	}

	res, err := m.resolver.Resolve(ctx, m.id, m.win)
	if err != nil {
		return step{}, err
	}

	var price int64
	if res.Revision.Price != nil {
		price = *res.Revision.Price
	}
	m.result = aggregate{priceSum: price, leafCount: 1, date: res.Revision.Date}
	m.emitted = true

	if !m.emitObject {
		return doneStep(m.result), nil
	}
	return fragmentStep(renderOffer(res.Revision, res.ParentID, m.withChildrenKey)), nil
}

type categoryState int

const (
	stateInitializing categoryState = iota
	stateRunning
	stateWaitingForChild
	stateFinalizing
	stateDone
)

// categoryMachine walks one category: it resolves itself, hands each
// effective child to the driver in turn, folds their aggregates, and closes
// its object with the derived price and date.
type categoryMachine struct {
	owner           *Aggregator
	resolver        *Resolver
	id              string
	win             entities.Window
	emitObject      bool
	includeChildren bool

	state    categoryState
	children []machine
	next     int

	sum    int64
	leaves int64
	date   time.Time
	result aggregate
}

func (m *categoryMachine) advance(ctx context.Context) (step, error) {
	switch m.state {
	case stateInitializing:
		res, err := m.resolver.Resolve(ctx, m.id, m.win)
		if err != nil {
			return step{}, err
		}

		childrenVisible := m.emitObject && m.includeChildren
		for _, child := range res.Children {
			m.children = append(m.children,
				m.owner.newMachine(child.Type, child.ID, m.win, childrenVisible, childrenVisible))
		}

		m.date = res.Revision.Date
		m.state = stateRunning

		if !m.emitObject {
			return step{}, nil
		}
		return fragmentStep(renderCategoryOpen(res.Revision, res.ParentID, m.includeChildren)), nil

	case stateRunning:
		if m.next < len(m.children) {
			child := m.children[m.next]
			m.state = stateWaitingForChild
			return childStep(child), nil
		}
		m.state = stateFinalizing
		return step{}, nil

	case stateWaitingForChild:
		// The fold itself happened in childDone; only the separator between
		// sibling objects is emitted here.
		m.next++
		m.state = stateRunning
		if m.emitObject && m.includeChildren && m.next < len(m.children) {
			return fragmentStep(childSeparator), nil
		}
		return step{}, nil

	case stateFinalizing:
		m.state = stateDone
		m.result = aggregate{priceSum: m.sum, leafCount: m.leaves, date: m.date}

		// Subtrees without a single offer have no derivable price. They are
		// also excluded from the parent's fold on both sides of the division
		// because they contribute zero to the sum and zero to the count.
		var price *int64
		if m.leaves > 0 {
			p := m.sum / m.leaves
			price = &p
		}

		if !m.emitObject {
			return step{}, nil
		}
		return fragmentStep(renderCategoryClose(price, m.date, m.includeChildren)), nil

	default: // stateDone
		return doneStep(m.result), nil
	}
}

func (m *categoryMachine) childDone(res aggregate) {
	m.sum += res.priceSum
	m.leaves += res.leafCount
	if res.date.After(m.date) {
		m.date = res.date
	}
}
