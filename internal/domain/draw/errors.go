package draw

import (
	"fmt"
	"strings"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
)

// InfeasibleError reports an exclusion configuration with no valid
// assignment. Blocking lists the givers to relax, in roster order.
type InfeasibleError struct {
	Blocking []string
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("no valid assignment exists: over-constrained participants [%s]", strings.Join(e.Blocking, ", "))
}

// Is lets errors.Is(err, common.ErrInfeasible) match.
func (e *InfeasibleError) Is(target error) bool {
	return target == common.ErrInfeasible
}
