/*
Package segment splits free-form chat text into an ordered list of tasks.

A Segmenter tries a fixed chain of classifiers and keeps the first one that
yields at least two tasks:

 1. numbered lines ("1. milk", "2) bread")
 2. bulleted lines ("•", "·", "-", "*", markdown checkboxes)
 3. commas outside brackets
 4. semicolons outside brackets
 5. non-blank lines
 6. inline separators: "|", the conjunction "и" (see WithConjunctions), " + "
 7. the whole text as a single task

Parsing is total and deterministic for a given clock: it never fails, and the
same text always produces the same tasks.
*/
package segment
