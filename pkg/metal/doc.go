// Package metal resolves macros and fills their slots.
//
// A macro is any element carrying metal:define-macro. Using it splices an
// independent copy of the macro in place of the use-site, after replacing each
// metal:define-slot with the matching metal:fill-slot from the use-site.
// A macro may extend another with metal:extend-macro; its own fills are applied
// to the base and remain overridable by the final use-site.
package metal
