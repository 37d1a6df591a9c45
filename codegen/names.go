// names.go - kernel-source symbol naming for Vals/TensorViews
package codegen

import "fmt"

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-('a'-'A')) + s[1:]
}

func tensorSymbolByName(valName int) string {
	return fmt.Sprintf("t%d", valName)
}

func scalarSymbolByName(valName int) string {
	return fmt.Sprintf("s%d", valName)
}
