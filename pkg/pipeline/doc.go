// Package pipeline manages the per-target command stream for AECP and
// ACMP exchanges: sequence ID allocation, outstanding-command
// bookkeeping, retransmission after a fixed per-attempt timeout, and strict
// FIFO completion ordering within a single target entity.
package pipeline
