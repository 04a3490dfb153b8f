// Package expression implements the small expression language used by cache
// operation declarations for keys, conditions and unless filters.
//
// # Grammar
//
// Expressions support literals (integers, floats, quoted strings, true, false,
// null), variables, property and index access, method calls, boolean logic,
// comparison, arithmetic, and string concatenation:
//
//	#p0                          first argument
//	#id                          argument bound to the parameter named "id"
//	#root.methodName + '-' + #p0 composite string key
//	#user.email.endsWith('.org') method call on a resolved value
//	#result > 10                 only valid once the result is known
//
// # Variables
//
//   - #p0, #p1, ... and #a0, #a1, ...: positional arguments
//   - #<param>: arguments by declared parameter name
//   - #args: all arguments
//   - #root: the root object with methodName, method (name, signature),
//     target, targetClass, args and caches
//   - #result: the invocation result, available only after invocation
//
// The root properties may also be referenced without the #root prefix, so
// "methodName" and "#root.methodName" are equivalent.
//
// # Errors
//
// Every failure is an *EvaluationError. Undefined variables, #result before
// invocation, unknown properties or methods, and operand type mismatches are
// hard errors; there is no fallback value.
package expression
