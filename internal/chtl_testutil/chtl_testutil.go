// Package chtl_testutil collects small test helpers used by every package's
// _test.go files, mirroring esbuild's internal/test package rather than
// pulling in a third-party assertion library.
package chtl_testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Yhlight/CHTL-FINAL/internal/chtl_logger"
)

func AssertEqual(t *testing.T, a interface{}, b interface{}) {
	t.Helper()
	if a != b {
		t.Fatalf("%v != %v", a, b)
	}
}

// AssertEqualDiff renders a line-by-line diff when the mismatch spans
// multiple lines, else falls back to AssertEqual's plain message.
func AssertEqualDiff(t *testing.T, a interface{}, b interface{}) {
	t.Helper()
	if a == b {
		return
	}
	stringA := fmt.Sprintf("%v", a)
	stringB := fmt.Sprintf("%v", b)
	if strings.Contains(stringA, "\n") || strings.Contains(stringB, "\n") {
		t.Fatal(diff(stringB, stringA))
		return
	}
	t.Fatalf("%v != %v", a, b)
}

func SourceForTest(contents string) *chtl_logger.Source {
	return &chtl_logger.Source{Index: 0, PrettyPath: "<test>", Contents: contents}
}

func diff(old string, new string) string {
	return strings.Join(diffRec(nil, strings.Split(old, "\n"), strings.Split(new, "\n")), "\n")
}

func diffRec(result []string, old []string, new []string) []string {
	o, n, common := lcSubstr(old, new)

	if common == 0 {
		for _, line := range old {
			result = append(result, "-"+line)
		}
		for _, line := range new {
			result = append(result, "+"+line)
		}
	} else {
		result = diffRec(result, old[:o], new[:n])
		for _, line := range old[o : o+common] {
			result = append(result, " "+line)
		}
		result = diffRec(result, old[o+common:], new[n+common:])
	}

	return result
}

// lcSubstr finds the longest common run of lines between S and T, returning
// the index into each where it starts plus its length.
func lcSubstr(S []string, T []string) (int, int, int) {
	r := len(S)
	n := len(T)
	lPrev := make([]int, n)
	lNext := make([]int, n)
	z := 0
	retI := 0
	retJ := 0

	for i := 0; i < r; i++ {
		for j := 0; j < n; j++ {
			if S[i] == T[j] {
				if j == 0 {
					lNext[j] = 1
				} else {
					lNext[j] = lPrev[j-1] + 1
				}
				if lNext[j] > z {
					z = lNext[j]
					retI = i + 1
					retJ = j + 1
				}
			} else {
				lNext[j] = 0
			}
		}
		lPrev, lNext = lNext, lPrev
	}

	return retI - z, retJ - z, z
}
