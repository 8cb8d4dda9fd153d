// Package command holds the robot instruction alphabet and the synthesizer that
// turns routes into instructions.
//
// Every opcode is one ASCII letter so a program can be written to the serial
// link one byte per instruction:
//
//	a b w x   enter the block circles (left course at 4/6, right course at 5/8)
//	c         move to the next block circle
//	d e f     spin right, left, half turn
//	g         put from a midpoint
//	h i       straight with a detour around the carried block
//	j k l m   turn right or left, with or without a block
//	n         turn around and go straight
//	u v       move between cross circles, move diagonally
//	y z       quick put from a cross circle
//
// The Synthesizer emits half-line moves while walking a route. Compact folds
// pairs of them into full moves.
package command
