package orchestrator

import (
	"reflect"
	"sort"
	"strconv"

	"github.com/crmarques/orgsync/resource"
	"github.com/crmarques/orgsync/resourcetype"
)

// diffRecord compares the destination copy of key with candidate after
// removing excluded attributes from both.
func diffRecord(key string, destination resource.Record, candidate resource.Record, config resourcetype.Config) []resource.DiffEntry {
	return buildDiffEntries(key, config.StripExcluded(destination), config.StripExcluded(candidate))
}

func buildDiffEntries(key string, destination resource.Value, candidate resource.Value) []resource.DiffEntry {
	entries := make([]resource.DiffEntry, 0)
	collectDiffEntries(&entries, key, "", destination, candidate)
	return entries
}

func collectDiffEntries(entries *[]resource.DiffEntry, key string, pointer string, destination any, candidate any) {
	if reflect.DeepEqual(destination, candidate) {
		return
	}

	destinationObject, destinationIsObject := destination.(map[string]any)
	candidateObject, candidateIsObject := candidate.(map[string]any)
	if destinationIsObject && candidateIsObject {
		keys := make([]string, 0, len(destinationObject)+len(candidateObject))
		seen := make(map[string]struct{}, len(destinationObject)+len(candidateObject))
		for field := range destinationObject {
			seen[field] = struct{}{}
			keys = append(keys, field)
		}
		for field := range candidateObject {
			if _, found := seen[field]; found {
				continue
			}
			keys = append(keys, field)
		}
		sort.Strings(keys)

		for _, field := range keys {
			nextPointer := pointer + "/" + resource.EscapePointerToken(field)
			destinationValue, destinationFound := destinationObject[field]
			candidateValue, candidateFound := candidateObject[field]

			switch {
			case !destinationFound:
				appendDiffEntry(entries, key, nextPointer, resource.DiffAdd, nil, candidateValue)
			case !candidateFound:
				appendDiffEntry(entries, key, nextPointer, resource.DiffRemove, destinationValue, nil)
			default:
				collectDiffEntries(entries, key, nextPointer, destinationValue, candidateValue)
			}
		}
		return
	}

	destinationArray, destinationIsArray := destination.([]any)
	candidateArray, candidateIsArray := candidate.([]any)
	if destinationIsArray && candidateIsArray {
		maxLength := max(len(destinationArray), len(candidateArray))
		for idx := range maxLength {
			nextPointer := pointer + "/" + strconv.Itoa(idx)

			switch {
			case idx >= len(destinationArray):
				appendDiffEntry(entries, key, nextPointer, resource.DiffAdd, nil, candidateArray[idx])
			case idx >= len(candidateArray):
				appendDiffEntry(entries, key, nextPointer, resource.DiffRemove, destinationArray[idx], nil)
			default:
				collectDiffEntries(entries, key, nextPointer, destinationArray[idx], candidateArray[idx])
			}
		}
		return
	}

	appendDiffEntry(entries, key, pointer, resource.DiffReplace, destination, candidate)
}

func appendDiffEntry(
	entries *[]resource.DiffEntry,
	key string,
	pointer string,
	operation string,
	destination any,
	candidate any,
) {
	*entries = append(*entries, resource.DiffEntry{
		Key:         key,
		Path:        pointer,
		Operation:   operation,
		Destination: destination,
		Candidate:   candidate,
	})
}
