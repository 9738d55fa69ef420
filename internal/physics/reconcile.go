package physics

import "math"

// Correction policy thresholds. Small errors are noise and ignored, medium
// errors are smoothed toward the authoritative state, large errors snap.
const (
	SnapThreshold     = 200.0 // px - beyond this, teleport to the server state
	IgnoreThreshold   = 5.0   // px - below this, keep the predicted position
	VelocityDeadZone  = 20.0  // px/s - velocity error ignored below this
	CorrectionPerTick = 0.3   // interpolation factor in the smoothing band
)

// PendingInput is an input the client has applied locally but the server has
// not yet acknowledged.
type PendingInput struct {
	Input Input
}

// AuthoritativeState is the per-player portion of a server snapshot relevant
// to reconciliation.
type AuthoritativeState struct {
	Body                  Body
	LastProcessedSequence uint32
}

// Reconciler replays unacknowledged inputs on top of server snapshots using
// the same kernel the server runs. Both sides integrate with identical
// constants, so a client with no packet loss predicts the server exactly.
type Reconciler struct {
	pending  []PendingInput
	local    Body
	dragMul  float64
	speedMul float64
}

// NewReconciler creates a reconciler with the player's current stat
// multipliers. Call SetMultipliers when buffs change them.
func NewReconciler(dragMul, speedMul float64) *Reconciler {
	return &Reconciler{dragMul: dragMul, speedMul: speedMul}
}

// SetMultipliers updates the stat multipliers used during replay.
func (r *Reconciler) SetMultipliers(dragMul, speedMul float64) {
	r.dragMul = dragMul
	r.speedMul = speedMul
}

// Predict applies an input locally and records it as pending.
func (r *Reconciler) Predict(in Input) Body {
	IntegratePlayer(&r.local, in, r.dragMul, r.speedMul, Dt)
	r.pending = append(r.pending, PendingInput{Input: in})
	return r.local
}

// Local returns the current predicted body.
func (r *Reconciler) Local() Body {
	return r.local
}

// PendingCount returns the number of unacknowledged inputs.
func (r *Reconciler) PendingCount() int {
	return len(r.pending)
}

// Reconcile ingests an authoritative snapshot: discard acknowledged inputs,
// rebase on the server state, replay the rest, then apply the correction
// policy against the previous prediction.
func (r *Reconciler) Reconcile(auth AuthoritativeState) Body {
	// Drop everything the server has already integrated.
	n := 0
	for _, p := range r.pending {
		if p.Input.Sequence > auth.LastProcessedSequence {
			r.pending[n] = p
			n++
		}
	}
	r.pending = r.pending[:n]

	predicted := r.local

	// Rebase and replay.
	r.local = auth.Body
	for _, p := range r.pending {
		IntegratePlayer(&r.local, p.Input, r.dragMul, r.speedMul, Dt)
	}

	// Correction policy against the pre-reconcile prediction.
	dx := r.local.X - predicted.X
	dy := r.local.Y - predicted.Y
	posErr := math.Sqrt(dx*dx + dy*dy)

	dvx := r.local.VX - predicted.VX
	dvy := r.local.VY - predicted.VY
	velErr := math.Sqrt(dvx*dvx + dvy*dvy)

	switch {
	case posErr > SnapThreshold:
		// Keep the replayed state as-is: hard snap.
	case posErr < IgnoreThreshold:
		r.local.X = predicted.X
		r.local.Y = predicted.Y
	default:
		r.local.X = predicted.X + dx*CorrectionPerTick
		r.local.Y = predicted.Y + dy*CorrectionPerTick
	}

	if posErr <= SnapThreshold && velErr < VelocityDeadZone {
		r.local.VX = predicted.VX
		r.local.VY = predicted.VY
	}

	return r.local
}
