// Package board provides the coordinate model of the Block Bingo field.
//
// The field has eight block circles arranged as a 3x3 ring with an empty
// center, surrounded by a 4x4 grid of cross circles joined by black lines.
// All points live in one integer space scaled by two:
//
//	(0,0) C--M--C--M--C--M--C (0,6)
//	      M  1  M  2  M  3  M
//	      C--M--C--M--C--M--C
//	      M  4  M     M  5  M
//	      C--M--C--M--C--M--C
//	      M  6  M  7  M  8  M
//	(6,0) C--M--C--M--C--M--C (6,6)
//
// Cross circles (C) sit on even/even coordinates, midpoints (M) on mixed
// parity and block circles on odd/odd coordinates, which the robot never
// drives over.
//
// A Board is created once per round from recognized block placements and is
// mutated in place as blocks are collected and delivered. Solvers receive it by
// pointer and never keep a copy.
//
// The package also defines the error taxonomy shared by every planning
// component: ErrInvalidIdentifier, ErrInvalidGeometry, ErrSearchExhausted,
// ErrSynthesis and ErrInvalidState.
package board
