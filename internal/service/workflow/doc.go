// Package workflow implements the improvement plan lifecycle.
//
// States:
//   - draft -> process_of_signatures -> signed_and_sent -> awaiting_approval
//     -> in_filing_queue -> filed -> plan_reevaluated -> closed
//   - silence and clarification branches run through not_received and
//     clarification; filing exceptions through rejected and
//     cancellation_filed; ethics_violation suspends the supplier.
//
// Every state change goes through Service.Transition, which checks the
// transition table, then the per-transition role grants, applies target-state
// side effects, and commits the plan together with its history entry in one
// transaction guarded by the plan version. Time-driven transitions are issued
// by Scanner under the reserved system role.
//
// Auditing:
//   - A committed transition appends exactly one history entry.
//   - Rejected transitions append nothing and leave the plan untouched.
package workflow
