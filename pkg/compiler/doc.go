// Package compiler provides a lexer, parser, optimizer and code generator
// for a small typed language that targets the two-register CPU in package
// cpu.
//
// Pipeline: source → Lex → Parse → Initialize → Optimize → Build → Link → asm.Assemble
//
// Every variable, parameter and temporary has a fixed address: the program
// and each out-of-line function own one static frame. Expressions leave
// their value in A; B is scratch.
package compiler
