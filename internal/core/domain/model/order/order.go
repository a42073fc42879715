package order

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/pkg/errs"
)

// Order is the aggregate root of the saga. It is event sourced: every state
// change is recorded as an Event and the fields below are nothing more than
// the fold of those events. Mutating methods validate the request against the
// current status, append exactly one event and apply it.
//
// Order follows these invariants:
//   - status only moves along the graph described on Status
//   - driverID is set from DriverAssigned on and never before it
//   - at most one assignment is offered or accepted at any time
//   - pricing total is derived from its components
//   - version equals the sequence number of the last applied event
type Order struct {
	id                  kernel.UUID
	orderNumber         string
	customerID          kernel.UUID
	restaurantID        kernel.UUID
	restaurantLocation  kernel.Location
	deliveryLocation    kernel.Location
	deliveryAddress     string
	specialInstructions string
	items               []LineItem
	pricing             Pricing
	paymentMethod       string
	paymentStatus       PaymentStatus
	paymentRef          string

	status         Status
	lastTransition EventType
	statusReason   string
	driverID       *kernel.UUID

	assignments        []Assignment
	excludedDrivers    []kernel.UUID
	assignmentAttempts int
	retry              RetryState

	estimatedDeliveryAt time.Time
	createdAt           time.Time
	updatedAt           time.Time
	cancellationReason  string
	cancelledBy         Actor

	version int64
	changes []*Event
	reached []Status

	isConstructed bool
}

// CreateParams is the validated cart snapshot an order is created from.
type CreateParams struct {
	CustomerID          kernel.UUID
	RestaurantID        kernel.UUID
	RestaurantLocation  kernel.Location
	DeliveryLocation    kernel.Location
	DeliveryAddress     string
	SpecialInstructions string
	Items               []LineItem
	Pricing             Pricing
	PaymentMethod       string
	EstimatedDeliveryAt time.Time
}

// NewOrder creates an order and records its order_created event.
//
// Example:
//
//	pricing, _ := order.NewPricing(2000, 300, 0, 0, order.DefaultTaxRate)
//	o, err := order.NewOrder(kernel.NewUUID(), order.CreateParams{...Pricing: pricing}, time.Now())
//	// o.Status() == order.Created, o.Changes() holds one event
func NewOrder(id kernel.UUID, params CreateParams, now time.Time) (*Order, error) {
	if err := validateCreateParams(id, params); err != nil {
		return nil, err
	}

	o := &Order{isConstructed: true}
	payload := Payload{
		OrderNumber:         newOrderNumber(id, now),
		CustomerID:          params.CustomerID,
		RestaurantID:        params.RestaurantID,
		RestaurantLocation:  params.RestaurantLocation,
		DeliveryLocation:    params.DeliveryLocation,
		DeliveryAddress:     params.DeliveryAddress,
		SpecialInstructions: params.SpecialInstructions,
		Items:               slices.Clone(params.Items),
		Pricing:             &params.Pricing,
		PaymentMethod:       params.PaymentMethod,
		EstimatedDeliveryAt: params.EstimatedDeliveryAt,
	}
	o.id = id
	if err := o.record(EventOrderCreated, payload, now); err != nil {
		return nil, err
	}
	return o, nil
}

func validateCreateParams(id kernel.UUID, p CreateParams) error {
	var errList []error
	errList = append(errList,
		id.Validate(),
		p.CustomerID.Validate(),
		p.RestaurantID.Validate(),
		p.RestaurantLocation.Validate(),
		p.DeliveryLocation.Validate(),
		p.Pricing.Validate(),
	)
	if strings.TrimSpace(p.DeliveryAddress) == "" {
		errList = append(errList, errs.NewValueIsRequiredError("delivery_address"))
	}
	if strings.TrimSpace(p.PaymentMethod) == "" {
		errList = append(errList, errs.NewValueIsRequiredError("payment_method"))
	}
	if len(p.Items) == 0 {
		errList = append(errList, errs.NewValueIsRequiredError("items"))
	}
	return errors.Join(errList...)
}

// newOrderNumber builds the human readable number OD<unix seconds><4 chars>.
func newOrderNumber(id kernel.UUID, now time.Time) string {
	return fmt.Sprintf("OD%d%s", now.Unix(), strings.ToUpper(id.String()[:4]))
}

// RestoreOrder folds an ordered event log into an Order. The log must start at
// sequence 1 with order_created and have no gaps.
func RestoreOrder(events []*Event) (*Order, error) {
	if len(events) == 0 {
		return nil, errs.NewValueIsRequiredError("events")
	}
	if events[0].Type() != EventOrderCreated {
		return nil, fmt.Errorf("%w: first event is %s", ErrBrokenEventLog, events[0].Type())
	}

	o := &Order{id: events[0].OrderID(), isConstructed: true}
	for _, e := range events {
		if !e.OrderID().IsEqual(o.id) {
			return nil, fmt.Errorf("%w: event %s belongs to another order", ErrBrokenEventLog, e)
		}
		if err := o.apply(e); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBrokenEventLog, err)
		}
	}
	return o, nil
}

// Validate ensures the Order was built by NewOrder or RestoreOrder.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}
	return nil
}

func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id.IsEqual(other.id)
}

func (o *Order) ID() kernel.UUID                     { return o.id }
func (o *Order) OrderNumber() string                 { return o.orderNumber }
func (o *Order) CustomerID() kernel.UUID             { return o.customerID }
func (o *Order) RestaurantID() kernel.UUID           { return o.restaurantID }
func (o *Order) RestaurantLocation() kernel.Location { return o.restaurantLocation }
func (o *Order) DeliveryLocation() kernel.Location   { return o.deliveryLocation }
func (o *Order) DeliveryAddress() string             { return o.deliveryAddress }
func (o *Order) SpecialInstructions() string         { return o.specialInstructions }
func (o *Order) Items() []LineItem                   { return slices.Clone(o.items) }
func (o *Order) Pricing() Pricing                    { return o.pricing }
func (o *Order) PaymentMethod() string               { return o.paymentMethod }
func (o *Order) PaymentStatus() PaymentStatus        { return o.paymentStatus }
func (o *Order) PaymentRef() string                  { return o.paymentRef }
func (o *Order) Status() Status                      { return o.status }
func (o *Order) StatusReason() string                { return o.statusReason }
func (o *Order) EstimatedDeliveryAt() time.Time      { return o.estimatedDeliveryAt }
func (o *Order) CreatedAt() time.Time                { return o.createdAt }
func (o *Order) UpdatedAt() time.Time                { return o.updatedAt }
func (o *Order) CancellationReason() string          { return o.cancellationReason }
func (o *Order) CancelledBy() Actor                  { return o.cancelledBy }
func (o *Order) AssignmentAttempts() int             { return o.assignmentAttempts }
func (o *Order) Retry() RetryState                   { return o.retry }
func (o *Order) Assignments() []Assignment           { return slices.Clone(o.assignments) }
func (o *Order) ExcludedDrivers() []kernel.UUID      { return slices.Clone(o.excludedDrivers) }

// Driver returns the assigned driver's ID, or nil before assignment.
func (o *Order) Driver() *kernel.UUID {
	if o.driverID == nil {
		return nil
	}
	id := *o.driverID
	return &id
}

// Version is the sequence number of the last applied event, uncommitted
// changes included.
func (o *Order) Version() int64 {
	return o.version
}

// PersistedVersion is the version the store is expected to hold before the
// uncommitted changes are written.
func (o *Order) PersistedVersion() int64 {
	return o.version - int64(len(o.changes))
}

// Changes returns the events recorded since the order was loaded.
func (o *Order) Changes() []*Event {
	return slices.Clone(o.changes)
}

// ClearChanges is called by the store once the changes are durable.
func (o *Order) ClearChanges() {
	o.changes = nil
	o.reached = nil
}

// StatusAfter returns the status the order reached when the uncommitted
// change e was applied. For other events it returns the current status.
func (o *Order) StatusAfter(e *Event) Status {
	i := int(e.SequenceNo() - o.PersistedVersion() - 1)
	if i < 0 || i >= len(o.changes) || !o.changes[i].ID().IsEqual(e.ID()) {
		return o.status
	}
	return o.reached[i]
}

// ActiveAssignment returns the offered or accepted assignment, if any.
func (o *Order) ActiveAssignment() (Assignment, bool) {
	if i := o.activeAssignmentIndex(); i >= 0 {
		return o.assignments[i], true
	}
	return Assignment{}, false
}

// IsDriverExcluded reports whether the driver already rejected, ignored or
// abandoned this order.
func (o *Order) IsDriverExcluded(driverID kernel.UUID) bool {
	return slices.ContainsFunc(o.excludedDrivers, driverID.IsEqual)
}

// AwaitsRefund reports whether money has to be returned to the customer.
func (o *Order) AwaitsRefund() bool {
	switch o.status { //nolint:exhaustive // only refund carrying states matter
	case RestaurantRejected, Refunding:
		return true
	case Cancelled:
		return o.paymentStatus == PaymentStatusCompleted || o.paymentStatus == PaymentStatusRefundPending
	default:
		return false
	}
}

// RequestPayment moves a created order to payment_pending.
func (o *Order) RequestPayment(now time.Time) error {
	pricing := o.pricing
	return o.transition(EventPaymentRequested, Payload{
		PaymentMethod: o.paymentMethod,
		Pricing:       &pricing,
	}, now)
}

// CompletePayment records a successful charge. A charge that lands after the
// order was cancelled is still recorded so that it gets refunded.
func (o *Order) CompletePayment(paymentRef string, now time.Time) error {
	if strings.TrimSpace(paymentRef) == "" {
		return errs.NewValueIsRequiredError("payment_ref")
	}
	if o.status == Cancelled {
		if o.paymentStatus != PaymentStatusPending {
			return fmt.Errorf("%w: %s", ErrEventAlreadyApplied, EventPaymentCompleted)
		}
		return o.record(EventPaymentCompleted, Payload{PaymentRef: paymentRef}, now)
	}
	return o.transition(EventPaymentCompleted, Payload{PaymentRef: paymentRef}, now)
}

// FailPayment records a definitive decline. PaymentFailed is terminal.
func (o *Order) FailPayment(reason string, now time.Time) error {
	return o.transition(EventPaymentFailed, Payload{Reason: reason}, now)
}

// RecordPaymentAttemptFailure notes a transient gateway failure and when the
// payment should be retried.
func (o *Order) RecordPaymentAttemptFailure(reason string, nextAttemptAt, now time.Time) error {
	return o.transition(EventPaymentAttemptFailed, o.failurePayload(RetryPayment, reason, nextAttemptAt), now)
}

func (o *Order) ConfirmByRestaurant(now time.Time) error {
	return o.transition(EventRestaurantConfirmed, Payload{}, now)
}

func (o *Order) RejectByRestaurant(reason string, now time.Time) error {
	return o.transition(EventRestaurantRejected, Payload{Reason: reason}, now)
}

func (o *Order) StartPreparing(now time.Time) error {
	return o.transition(EventOrderPreparing, Payload{}, now)
}

func (o *Order) MarkReady(now time.Time) error {
	return o.transition(EventOrderReady, Payload{}, now)
}

// RequestRefund starts the refund compensation. After a restaurant rejection
// the order moves to refunding; a cancelled paid order stays cancelled and
// only its payment status changes.
func (o *Order) RequestRefund(now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	pricing := o.pricing
	payload := Payload{PaymentRef: o.paymentRef, Pricing: &pricing}
	switch {
	case o.status == RestaurantRejected:
		return o.transition(EventRefundRequested, payload, now)
	case o.status == Cancelled && o.paymentStatus == PaymentStatusCompleted:
		return o.record(EventRefundRequested, payload, now)
	case o.status == Refunding, o.status == Cancelled && o.paymentStatus == PaymentStatusRefundPending:
		return fmt.Errorf("%w: %s", ErrEventAlreadyApplied, EventRefundRequested)
	default:
		return &TransitionError{From: o.status, Event: EventRefundRequested}
	}
}

// CompleteRefund records the gateway's refund confirmation.
func (o *Order) CompleteRefund(now time.Time) error {
	if err := o.refundInFlight(EventRefundCompleted); err != nil {
		return err
	}
	return o.record(EventRefundCompleted, Payload{PaymentRef: o.paymentRef}, now)
}

// RecordRefundFailure notes a failed refund attempt and when to retry it.
func (o *Order) RecordRefundFailure(reason string, nextAttemptAt, now time.Time) error {
	if err := o.refundInFlight(EventRefundFailed); err != nil {
		return err
	}
	return o.record(EventRefundFailed, o.failurePayload(RetryRefund, reason, nextAttemptAt), now)
}

// AbandonRefund gives up on refunding a cancelled order.
func (o *Order) AbandonRefund(reason string, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.status != Cancelled || o.paymentStatus != PaymentStatusRefundPending {
		if o.paymentStatus == PaymentStatusRefundFailed {
			return fmt.Errorf("%w: %s", ErrEventAlreadyApplied, EventRefundAbandoned)
		}
		return &TransitionError{From: o.status, Event: EventRefundAbandoned}
	}
	return o.record(EventRefundAbandoned, Payload{Reason: reason}, now)
}

func (o *Order) refundInFlight(t EventType) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.status == Refunding || (o.status == Cancelled && o.paymentStatus == PaymentStatusRefundPending) {
		return nil
	}
	if o.paymentStatus == PaymentStatusRefunded {
		return fmt.Errorf("%w: %s", ErrEventAlreadyApplied, t)
	}
	return &TransitionError{From: o.status, Event: t}
}

// OfferDriver records an offer to driverID valid until expiresAt and returns
// the new assignment's ID.
func (o *Order) OfferDriver(driverID kernel.UUID, expiresAt, now time.Time) (kernel.UUID, error) {
	if err := o.Validate(); err != nil {
		return kernel.UUID{}, err
	}
	if err := driverID.Validate(); err != nil {
		return kernel.UUID{}, err
	}
	if active, ok := o.ActiveAssignment(); ok {
		if active.DriverID.IsEqual(driverID) && active.Status == AssignmentOffered {
			return active.ID, fmt.Errorf("%w: %s", ErrEventAlreadyApplied, EventDriverOffered)
		}
		return kernel.UUID{}, &TransitionError{From: o.status, Event: EventDriverOffered}
	}
	if o.IsDriverExcluded(driverID) {
		return kernel.UUID{}, errs.NewValueIsInvalidErrorWithCause("driver_id",
			fmt.Errorf("driver %s is excluded for order %s", driverID, o.id))
	}
	if !expiresAt.After(now) {
		return kernel.UUID{}, errs.NewValueIsInvalidErrorWithCause("offer_expires_at",
			errors.New("offer expiry must be in the future"))
	}

	assignmentID := kernel.NewUUID()
	err := o.transition(EventDriverOffered, Payload{
		DriverID:       driverID,
		AssignmentID:   assignmentID,
		OfferExpiresAt: expiresAt,
	}, now)
	if err != nil {
		return kernel.UUID{}, err
	}
	return assignmentID, nil
}

// RecordDriverSearchFailure notes that no eligible driver was found.
func (o *Order) RecordDriverSearchFailure(reason string, nextAttemptAt, now time.Time) error {
	return o.transition(EventDriverSearchFailed, o.failurePayload(RetryDriverSearch, reason, nextAttemptAt), now)
}

// AcceptAssignment binds the offered driver to the order.
func (o *Order) AcceptAssignment(driverID kernel.UUID, estimatedDeliveryAt, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.status.HasDriver() && o.driverID != nil && o.driverID.IsEqual(driverID) {
		return fmt.Errorf("%w: %s", ErrEventAlreadyApplied, EventDriverAssigned)
	}
	offer, err := o.offerFor(driverID, EventDriverAssigned)
	if err != nil {
		return err
	}
	if now.After(offer.ExpiresAt) {
		return fmt.Errorf("%w: offer %s expired at %s", ErrInvalidStateTransition, offer.ID, offer.ExpiresAt)
	}
	return o.transition(EventDriverAssigned, Payload{
		DriverID:            driverID,
		AssignmentID:        offer.ID,
		EstimatedDeliveryAt: estimatedDeliveryAt,
	}, now)
}

// RejectAssignment records the driver declining the offer. The driver is
// excluded from further searches for this order.
func (o *Order) RejectAssignment(driverID kernel.UUID, reason string, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.lastAssignmentOf(driverID) == AssignmentRejected {
		return fmt.Errorf("%w: %s", ErrEventAlreadyApplied, EventAssignmentRejected)
	}
	offer, err := o.offerFor(driverID, EventAssignmentRejected)
	if err != nil {
		return err
	}
	return o.transition(EventAssignmentRejected, Payload{
		DriverID:     driverID,
		AssignmentID: offer.ID,
		Reason:       reason,
	}, now)
}

// TimeOutAssignment expires the offer identified by assignmentID.
func (o *Order) TimeOutAssignment(assignmentID kernel.UUID, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	for _, a := range o.assignments {
		if !a.ID.IsEqual(assignmentID) {
			continue
		}
		if a.Status != AssignmentOffered {
			return fmt.Errorf("%w: assignment %s is %s", ErrEventAlreadyApplied, a.ID, a.Status)
		}
		return o.transition(EventAssignmentTimedOut, Payload{
			DriverID:     a.DriverID,
			AssignmentID: a.ID,
			Reason:       "offer expired",
		}, now)
	}
	return errs.NewObjectNotFoundError("assignment_id", assignmentID)
}

// StartReassignment resumes the driver search after a timeout or a manual
// retry of an exhausted order. A manual retry resets the attempt budget.
func (o *Order) StartReassignment(reason string, now time.Time) error {
	return o.transition(EventReassignmentStarted, Payload{Reason: reason}, now)
}

// ExhaustAssignment escalates the order for manual handling.
func (o *Order) ExhaustAssignment(reason string, now time.Time) error {
	return o.transition(EventAssignmentExhausted, Payload{
		Reason:  reason,
		Attempt: o.assignmentAttempts,
	}, now)
}

// CancelAssignment releases the assigned driver before pickup and sends the
// order back to the driver search.
func (o *Order) CancelAssignment(driverID kernel.UUID, reason string, now time.Time) error {
	if err := o.requireDriver(driverID, EventAssignmentCancelled); err != nil {
		return err
	}
	active, _ := o.ActiveAssignment()
	return o.transition(EventAssignmentCancelled, Payload{
		DriverID:     driverID,
		AssignmentID: active.ID,
		Reason:       reason,
	}, now)
}

func (o *Order) ConfirmPickup(driverID kernel.UUID, now time.Time) error {
	if err := o.requireDriver(driverID, EventPickedUp); err != nil {
		return err
	}
	return o.transition(EventPickedUp, Payload{DriverID: driverID}, now)
}

func (o *Order) ConfirmDelivery(driverID kernel.UUID, now time.Time) error {
	if err := o.requireDriver(driverID, EventDelivered); err != nil {
		return err
	}
	return o.transition(EventDelivered, Payload{DriverID: driverID}, now)
}

// Cancel records a cancellation requested by actor. Cancellation is accepted
// from every non-terminal status and is irrevocable.
func (o *Order) Cancel(by Actor, reason string, now time.Time) error {
	if _, err := ParseActor(string(by)); err != nil {
		return err
	}
	return o.transition(EventOrderCancelled, Payload{
		CancelledBy: by,
		Reason:      reason,
		DriverID:    o.involvedDriver(),
	}, now)
}

// ForceCancel is the terminal compensation taken when retries of op are
// exhausted. It is always attributed to the system.
func (o *Order) ForceCancel(op RetryOperation, reason string, now time.Time) error {
	return o.transition(EventOrderCancelled, Payload{
		CancelledBy: ActorSystem,
		Reason:      reason,
		Operation:   op,
		Attempt:     o.retry.Attempts,
		DriverID:    o.involvedDriver(),
	}, now)
}

// involvedDriver is the driver holding the active offer or assignment, if
// any. Cancellation events carry it so that the driver can be released.
func (o *Order) involvedDriver() kernel.UUID {
	if active, ok := o.ActiveAssignment(); ok {
		return active.DriverID
	}
	return kernel.UUID{}
}

// RequestRetry records that the retry sweep re-issued op.
func (o *Order) RequestRetry(op RetryOperation, nextAttemptAt, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	attempt := 1
	if o.retry.Operation == op {
		attempt = o.retry.Attempts + 1
	}
	return o.transition(EventRetryRequested, Payload{
		Operation:     op,
		Attempt:       attempt,
		NextAttemptAt: nextAttemptAt,
	}, now)
}

func (o *Order) failurePayload(op RetryOperation, reason string, nextAttemptAt time.Time) Payload {
	attempts := 0
	if o.retry.Operation == op {
		attempts = o.retry.Attempts
	}
	return Payload{
		Operation:     op,
		Reason:        reason,
		Attempt:       attempts,
		NextAttemptAt: nextAttemptAt,
	}
}

func (o *Order) offerFor(driverID kernel.UUID, t EventType) (Assignment, error) {
	active, ok := o.ActiveAssignment()
	if !ok || active.Status != AssignmentOffered {
		return Assignment{}, &TransitionError{From: o.status, Event: t}
	}
	if !active.DriverID.IsEqual(driverID) {
		return Assignment{}, ErrDriverMismatch
	}
	return active, nil
}

func (o *Order) requireDriver(driverID kernel.UUID, t EventType) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.driverID == nil {
		return &TransitionError{From: o.status, Event: t}
	}
	if !o.driverID.IsEqual(driverID) {
		return ErrDriverMismatch
	}
	return nil
}

func (o *Order) lastAssignmentOf(driverID kernel.UUID) AssignmentStatus {
	for i := len(o.assignments) - 1; i >= 0; i-- {
		if o.assignments[i].DriverID.IsEqual(driverID) {
			return o.assignments[i].Status
		}
	}
	return ""
}

func (o *Order) activeAssignmentIndex() int {
	for i := len(o.assignments) - 1; i >= 0; i-- {
		if o.assignments[i].Status.IsActive() {
			return i
		}
	}
	return -1
}

// transition records a status-graph event, telling duplicates apart from
// genuinely invalid requests.
func (o *Order) transition(t EventType, payload Payload, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if _, err := o.nextStatus(t); err != nil {
		if t.ChangesStatus() && o.lastTransition == t {
			return fmt.Errorf("%w: %s", ErrEventAlreadyApplied, t)
		}
		return err
	}
	return o.record(t, payload, now)
}

func (o *Order) record(t EventType, payload Payload, now time.Time) error {
	e := newEvent(o.id, t, o.version+1, now, payload)
	if err := o.apply(e); err != nil {
		return err
	}
	o.changes = append(o.changes, e)
	o.reached = append(o.reached, o.status)
	return nil
}

// nextStatus extends Status.Next with the refund bookkeeping that continues
// after cancellation and with annotation events that have preconditions.
func (o *Order) nextStatus(t EventType) (Status, error) {
	switch t { //nolint:exhaustive // everything else follows the graph
	case EventRefundRequested, EventRefundCompleted, EventRefundFailed, EventRefundAbandoned, EventPaymentCompleted:
		if o.status == Cancelled {
			return Cancelled, nil
		}
		if t == EventRefundFailed {
			if o.status == Refunding {
				return Refunding, nil
			}
			return o.status, &TransitionError{From: o.status, Event: t}
		}
		if t == EventRefundAbandoned {
			return o.status, &TransitionError{From: o.status, Event: t}
		}
	case EventRetryRequested:
		if o.status.IsTerminal() && !(o.status == Cancelled && o.AwaitsRefund()) {
			return o.status, &TransitionError{From: o.status, Event: t}
		}
		return o.status, nil
	}
	return o.status.Next(t)
}

// apply folds one event into the aggregate.
func (o *Order) apply(e *Event) error {
	if e.SequenceNo() != o.version+1 {
		return fmt.Errorf("%w: expected sequence %d, got %d", ErrBrokenEventLog, o.version+1, e.SequenceNo())
	}
	next, err := o.nextStatus(e.Type())
	if err != nil {
		return err
	}

	p := e.Payload()
	at := e.OccurredAt()
	switch e.Type() {
	case EventOrderCreated:
		o.orderNumber = p.OrderNumber
		o.customerID = p.CustomerID
		o.restaurantID = p.RestaurantID
		o.restaurantLocation = p.RestaurantLocation
		o.deliveryLocation = p.DeliveryLocation
		o.deliveryAddress = p.DeliveryAddress
		o.specialInstructions = p.SpecialInstructions
		o.items = slices.Clone(p.Items)
		if p.Pricing != nil {
			o.pricing = *p.Pricing
		}
		o.paymentMethod = p.PaymentMethod
		o.paymentStatus = PaymentStatusPending
		o.estimatedDeliveryAt = p.EstimatedDeliveryAt
		o.createdAt = at
	case EventPaymentCompleted:
		o.paymentStatus = PaymentStatusCompleted
		o.paymentRef = p.PaymentRef
		o.retry = RetryState{}
	case EventPaymentFailed:
		o.paymentStatus = PaymentStatusFailed
		o.statusReason = p.Reason
		o.retry = RetryState{}
	case EventPaymentAttemptFailed, EventRefundFailed, EventDriverSearchFailed:
		o.retry = RetryState{
			Operation:     p.Operation,
			Attempts:      p.Attempt,
			NextAttemptAt: p.NextAttemptAt,
			LastError:     p.Reason,
		}
	case EventRestaurantRejected:
		o.statusReason = p.Reason
	case EventRefundRequested:
		o.paymentStatus = PaymentStatusRefundPending
		o.retry = RetryState{}
	case EventRefundCompleted:
		o.paymentStatus = PaymentStatusRefunded
		o.retry = RetryState{}
	case EventRefundAbandoned:
		o.paymentStatus = PaymentStatusRefundFailed
		o.statusReason = p.Reason
		o.retry = RetryState{}
	case EventDriverOffered:
		o.assignments = append(o.assignments, Assignment{
			ID:        p.AssignmentID,
			DriverID:  p.DriverID,
			Status:    AssignmentOffered,
			OfferedAt: at,
			ExpiresAt: p.OfferExpiresAt,
		})
		o.assignmentAttempts++
		o.retry = RetryState{}
	case EventDriverAssigned:
		o.resolveActive(AssignmentAccepted, "", at)
		driverID := p.DriverID
		o.driverID = &driverID
		if !p.EstimatedDeliveryAt.IsZero() {
			o.estimatedDeliveryAt = p.EstimatedDeliveryAt
		}
	case EventAssignmentRejected:
		o.resolveActive(AssignmentRejected, p.Reason, at)
		o.exclude(p.DriverID)
	case EventAssignmentTimedOut:
		o.resolveActive(AssignmentExpired, p.Reason, at)
		o.exclude(p.DriverID)
	case EventAssignmentCancelled:
		o.resolveActive(AssignmentCancelled, p.Reason, at)
		o.exclude(p.DriverID)
		o.driverID = nil
	case EventAssignmentExhausted:
		o.resolveActive(AssignmentExpired, p.Reason, at)
		o.statusReason = p.Reason
		o.retry = RetryState{}
	case EventReassignmentStarted:
		if o.status == AssignmentExhausted {
			o.assignmentAttempts = 0
		}
		o.retry = RetryState{}
	case EventOrderCancelled:
		o.resolveActive(AssignmentCancelled, "order cancelled", at)
		o.cancelledBy = p.CancelledBy
		o.cancellationReason = p.Reason
		switch {
		case p.Operation == RetryRefund && o.paymentStatus == PaymentStatusRefundPending:
			o.paymentStatus = PaymentStatusRefundFailed
		case p.Operation == RetryPayment && o.paymentStatus == PaymentStatusPending:
			o.paymentStatus = PaymentStatusFailed
		}
		o.retry = RetryState{}
	case EventRetryRequested:
		o.retry = RetryState{
			Operation:     p.Operation,
			Attempts:      p.Attempt,
			NextAttemptAt: p.NextAttemptAt,
			LastError:     o.retry.LastError,
		}
	}

	if e.Type().ChangesStatus() {
		o.lastTransition = e.Type()
	}
	o.status = next
	o.version = e.SequenceNo()
	o.updatedAt = at
	return nil
}

func (o *Order) resolveActive(status AssignmentStatus, reason string, at time.Time) {
	i := o.activeAssignmentIndex()
	if i < 0 {
		return
	}
	a := &o.assignments[i]
	if status == AssignmentAccepted {
		a.AssignedAt = at
	} else {
		a.ResolvedAt = at
		a.Reason = reason
	}
	a.Status = status
}

func (o *Order) exclude(driverID kernel.UUID) {
	if driverID.IsZero() || o.IsDriverExcluded(driverID) {
		return
	}
	o.excludedDrivers = append(o.excludedDrivers, driverID)
}
