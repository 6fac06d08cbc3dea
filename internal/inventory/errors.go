package inventory

import (
	"fmt"
	"strings"
)

// CycleError rejects a recipe save whose material graph would reach
// back to the recipe's own result.
type CycleError struct {
	Category   string
	ResultName string
	Path       []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("recipe %s/%s: cyclic material graph: %s",
		e.Category, e.ResultName, strings.Join(e.Path, " -> "))
}
