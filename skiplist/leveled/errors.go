package leveled

import "github.com/pkg/errors"

var (
	ErrLevelOutOfRange    = errors.New("[leveled] level out of range")
	ErrStructuralOverflow = errors.New("[leveled] height exceeds structural ceiling")
	ErrInvalidOption      = errors.New("[leveled] invalid option")
	errDoubleFree         = errors.New("[leveled] node freed twice")
)
