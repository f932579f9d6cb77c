/*
Package orbmatch identifies which of a small set of reference images a
photograph depicts, using local visual features instead of a trained
classifier.

Reference images are turned into oriented FAST keypoints with steered BRIEF
binary descriptors (the ORB scheme). A query is matched against every
reference with a brute-force two-nearest-neighbour Hamming search and Lowe's
ratio test, and the references are ranked by the share of good matches.

The reference set is expected to be small (tens of images). The Index is
built once and is read-only afterwards, so it can be queried concurrently
without locking.
*/
package orbmatch
