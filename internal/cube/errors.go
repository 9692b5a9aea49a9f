package cube

import "github.com/adcube-dev/adcube/internal/apperr"

func errUnknownDim(dim string) error {
	return apperr.New(apperr.Exec, "dimension not present in cube: "+dim)
}

func errKeyCoalesce(cubeName string) error {
	return apperr.New(apperr.Build, "outer-join key coalesce failed in cube "+cubeName+": NULL surfaced in key column")
}
