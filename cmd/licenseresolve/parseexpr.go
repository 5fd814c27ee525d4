// Copyright Amazon.com Inc or its affiliates and the project contributors
// Written by James Shubin <purple@amazon.com> and the project contributors
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.
//
// We will never require a CLA to submit a patch. All contributions follow the
// `inbound == outbound` rule.
//
// This is not an official Amazon product. Amazon does not offer support for
// this project.

package main

import (
	"fmt"
	"strings"

	"github.com/oss-review-toolkit/ort-sub000/spdxexpr"
)

// parseExpr is a minimal SPDX expression text parser covering what the
// scan-result fixture format needs: identifiers, "WITH", "AND", "OR" and
// parentheses. The resolver itself never parses text; this exists only to
// turn a JSON fixture's license strings into spdxexpr.Expression trees
// before they reach it.
func parseExpr(s string) (*spdxexpr.Expression, error) {
	toks := tokenizeExpr(s)
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty license expression")
	}
	p := &exprParser{toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("unexpected trailing tokens in expression %q", s)
	}
	return e, nil
}

func tokenizeExpr(s string) []string {
	s = strings.ReplaceAll(s, "(", " ( ")
	s = strings.ReplaceAll(s, ")", " ) ")
	return strings.Fields(s)
}

type exprParser struct {
	toks []string
	pos  int
}

func (p *exprParser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *exprParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *exprParser) parseOr() (*spdxexpr.Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek() == "OR" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = spdxexpr.Or(left, right)
	}
	return left, nil
}

func (p *exprParser) parseAnd() (*spdxexpr.Expression, error) {
	left, err := p.parseWith()
	if err != nil {
		return nil, err
	}
	for p.peek() == "AND" {
		p.next()
		right, err := p.parseWith()
		if err != nil {
			return nil, err
		}
		left = spdxexpr.And(left, right)
	}
	return left, nil
}

func (p *exprParser) parseWith() (*spdxexpr.Expression, error) {
	atom, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	if p.peek() == "WITH" {
		p.next()
		exception := p.next()
		if exception == "" {
			return nil, fmt.Errorf("expected exception identifier after WITH")
		}
		return spdxexpr.With(atom.License, exception), nil
	}
	return atom, nil
}

func (p *exprParser) parseAtom() (*spdxexpr.Expression, error) {
	tok := p.next()
	switch tok {
	case "":
		return nil, fmt.Errorf("unexpected end of expression")
	case "(":
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next() != ")" {
			return nil, fmt.Errorf("expected closing parenthesis")
		}
		return e, nil
	default:
		return spdxexpr.Leaf(tok), nil
	}
}
