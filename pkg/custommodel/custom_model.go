// Package custommodel parses and validates routing custom models forwarded to the routing backend.
package custommodel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lintang-b-s/navigatorx-navi/pkg/util"
)

// Expression. right hand side of multiply_by / limit_to. The backend accepts numbers and
// expression strings, both are kept as string.
type Expression string

func (e *Expression) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*e = Expression(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("expression must be a number or a string: %w", err)
	}
	*e = Expression(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// Statement. one conditional rule. Exactly one of If, ElseIf, Else and exactly one of
// MultiplyBy, LimitTo is set.
type Statement struct {
	If         *string     `json:"if,omitempty"`
	ElseIf     *string     `json:"else_if,omitempty"`
	Else       *string     `json:"else,omitempty"`
	MultiplyBy *Expression `json:"multiply_by,omitempty"`
	LimitTo    *Expression `json:"limit_to,omitempty"`
}

type CustomModel struct {
	DistanceInfluence *float64        `json:"distance_influence,omitempty" validate:"omitempty,gte=0"`
	Priority          []Statement     `json:"priority,omitempty" validate:"max=100,dive"`
	Speed             []Statement     `json:"speed,omitempty" validate:"max=100,dive"`
	Areas             json.RawMessage `json:"areas,omitempty"`
}

var validate = newValidator()

func newValidator() *util.Validator {
	v := util.NewValidator()
	v.RegisterStructValidation(statementStructLevel, Statement{})
	return v
}

func statementStructLevel(sl validator.StructLevel) {
	st := sl.Current().Interface().(Statement)

	conditions := 0
	for _, c := range []*string{st.If, st.ElseIf, st.Else} {
		if c != nil {
			conditions++
		}
	}
	if conditions != 1 {
		sl.ReportError(st.If, "if", "If", "one_condition", "")
	}
	if condition := st.condition(); condition != nil && st.Else == nil && strings.TrimSpace(*condition) == "" {
		sl.ReportError(st.If, "if", "If", "required_condition", "")
	}

	if (st.MultiplyBy == nil) == (st.LimitTo == nil) {
		sl.ReportError(st.MultiplyBy, "multiply_by", "MultiplyBy", "one_operation", "")
		return
	}
	op := st.MultiplyBy
	if op == nil {
		op = st.LimitTo
	}
	if strings.TrimSpace(string(*op)) == "" {
		sl.ReportError(st.MultiplyBy, "multiply_by", "MultiplyBy", "required_operation", "")
	}
}

func (st Statement) condition() *string {
	if st.If != nil {
		return st.If
	}
	return st.ElseIf
}

// Parse. decode and validate a custom model. Blank input means no custom model and returns nil.
func Parse(data []byte) (*CustomModel, error) {
	if len(bytes.TrimSpace(data)) == 0 || string(bytes.TrimSpace(data)) == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var cm CustomModel
	if err := dec.Decode(&cm); err != nil {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "invalid custom model")
	}
	if err := cm.Validate(); err != nil {
		return nil, err
	}
	return &cm, nil
}

// Validate checks field constraints and the if / else_if / else ordering of both rule blocks.
func (cm *CustomModel) Validate() error {
	if cm == nil {
		return nil
	}
	if err := validate.Struct(cm); err != nil {
		return util.WrapErrorf(err, util.ErrBadParamInput, "invalid custom model")
	}
	if err := validateOrder("priority", cm.Priority); err != nil {
		return err
	}
	if err := validateOrder("speed", cm.Speed); err != nil {
		return err
	}
	if len(cm.Areas) > 0 {
		var areas map[string]json.RawMessage
		if err := json.Unmarshal(cm.Areas, &areas); err != nil {
			return util.WrapErrorf(err, util.ErrBadParamInput, "invalid custom model: areas must be an object")
		}
	}
	return nil
}

// validateOrder. else_if and else may only follow an if or else_if statement.
func validateOrder(block string, statements []Statement) error {
	open := false
	for i, st := range statements {
		switch {
		case st.If != nil:
			open = true
		case st.ElseIf != nil:
			if !open {
				return util.WrapErrorf(nil, util.ErrBadParamInput,
					"invalid custom model: %s[%d] else_if without a preceding if", block, i)
			}
		case st.Else != nil:
			if !open {
				return util.WrapErrorf(nil, util.ErrBadParamInput,
					"invalid custom model: %s[%d] else without a preceding if", block, i)
			}
			open = false
		}
	}
	return nil
}
