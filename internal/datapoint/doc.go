// Package datapoint stores which datapoint type each KNX group address
// carries, together with the last value decoded from it.
package datapoint
