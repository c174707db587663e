package reviewdb

import "errors"
import "fmt"
import "strconv"
import "strings"
import "unicode"

type statement struct {
	text    string
	cmd     command
	numVars int
}

func newStatement(text string) *statement {
	return &statement{text: text}
}

func (s *statement) Compile() error {
	t := parseWith(s.text, pStatement)
	if t.err != nil {
		pad := strings.Repeat(" ", t.offset)
		return errors.New(fmt.Sprintf("%s\n%s\n%s^\n", t.err, s.text, pad))
	}
	s.cmd = t.ctx.(command)
	s.numVars = t.stmt.numVars
	return nil
}

func (s *statement) Execute(c *FakeCluster, params ...interface{}) (resultSet, error) {
	if len(params) != s.numVars {
		return nil, fmt.Errorf("there were %d markers(?) in CQL but %d bound variables",
			s.numVars, len(params))
	}
	bind := make(valueList, len(params))
	for i, param := range params {
		if bind[i] = literalValue(param); bind[i] == nil {
			return nil, fmt.Errorf("can't bind value of type %T", param)
		}
	}
	return s.cmd.Execute(c, bind)
}

type pStmt struct {
	text    string
	numVars int
}

type pToken struct {
	stmt   *pStmt
	runes  []rune
	offset int
	ctx    interface{}
	err    error
}

func (t pToken) eof() bool { return len(t.runes) == 0 }

func (t pToken) fail(vals ...interface{}) pToken {
	newtok := t
	newtok.err = errors.New(fmt.Sprintf("%d: %s", t.offset, fmt.Sprint(vals...)))
	return newtok
}

func (t pToken) failf(format string, args ...interface{}) pToken {
	return t.fail(fmt.Sprintf(format, args...))
}

func (t pToken) minus(u pToken) string {
	if t.offset <= u.offset {
		return ""
	}
	return string(u.runes[:t.offset-u.offset])
}

func (t pToken) advance(n int) pToken {
	newtok := t
	if n > len(t.runes) {
		n = len(t.runes)
	}
	newtok.runes = newtok.runes[n:]
	newtok.offset += n
	return newtok
}

func (t pToken) with(ctx interface{}) pToken {
	t.ctx = ctx
	return t
}

type _parser func(pToken) pToken

func parseWith(text string, grammar _parser) pToken {
	s := &pStmt{text: text}
	t := pToken{stmt: s, runes: []rune(text)}
	return grammar(t)
}

func gRequire(p _parser, ctx interface{}) _parser {
	return func(t pToken) pToken {
		u := p(t)
		if u.err != nil {
			return u
		}
		if u.ctx != ctx {
			return t.failf("expected %v, got %v", ctx, u.ctx)
		}
		return u
	}
}

// gList parses one or more p separated by sep. A trailing separator is an error.
func gList(p _parser, sep _parser) _parser {
	return func(t pToken) pToken {
		ctx := make([]interface{}, 0)
		if t = p(t); t.err != nil {
			return t
		}
		ctx = append(ctx, t.ctx)
		for !t.eof() {
			u := sep(t)
			if u.err != nil {
				break
			}
			if u = p(u); u.err != nil {
				return u
			}
			ctx = append(ctx, u.ctx)
			t = u
		}
		return t.with(ctx)
	}
}

func pStatement(t pToken) pToken {
	u := pTerm(t)
	keyword, ok := u.ctx.(termKeyword)
	if !ok {
		return t.fail("expected command")
	}
	switch keyword {
	case "alter":
		t = pAlter(u)
	case "create":
		t = pCreate(u)
	case "drop":
		t = pDrop(u)
	case "insert":
		t = pInsert(u)
	case "select":
		t = pSelect(u)
	default:
		return t.fail("invalid command: ", keyword)
	}
	if t.err == nil && !t.eof() {
		return t.fail("trailing text after complete statement")
	}
	return t
}

func pCreate(t pToken) pToken {
	u := pTerm(t)
	kw, _ := u.ctx.(termKeyword)
	switch kw {
	case "keyspace":
		return pCreateKeyspace(u)
	case "table":
		return pCreateTable(u)
	default:
		return t.fail("expected KEYSPACE or TABLE")
	}
}

func pCreateKeyspace(t pToken) pToken {
	var cmd createKeyspaceCommand
	if u := pIfNotExists(t); u.err == nil {
		t = u
	} else {
		cmd.strict = true
	}
	if t = pTermId(t); t.err != nil {
		return t
	}
	cmd.identifier = string(t.ctx.(termId))
	u := gRequire(pTerm, termKeyword("with"))(t)
	if u.err != nil {
		return t.with(&cmd)
	}
	// "replication" is also a column of system_schema.keyspaces, so it is not a keyword.
	if t = gRequire(pTerm, termId("replication"))(u); t.err != nil {
		return t
	}
	if t = gRequire(pTerm, termSymbol("="))(t); t.err != nil {
		return t
	}
	if t = pReplication(t); t.err != nil {
		return t
	}
	cmd.replication = t.ctx.(map[string]string)
	return t.with(&cmd)
}

// pReplication parses a replication map such as {'class': 'SimpleStrategy', 'replication_factor': 3}.
func pReplication(t pToken) pToken {
	if t = gRequire(pTerm, termSymbol("{"))(t); t.err != nil {
		return t
	}
	if t = gList(pReplicationEntry, pTermComma)(t); t.err != nil {
		return t
	}
	replication := make(map[string]string)
	for _, ctx := range t.ctx.([]interface{}) {
		kv := ctx.([2]string)
		replication[kv[0]] = kv[1]
	}
	if t = gRequire(pTerm, termSymbol("}"))(t); t.err != nil {
		return t
	}
	return t.with(replication)
}

func pReplicationEntry(t pToken) pToken {
	u := pTerm(t)
	key, ok := u.ctx.(termString)
	if u.err != nil || !ok {
		return t.fail("expected string key")
	}
	if t = gRequire(pTerm, termSymbol(":"))(u); t.err != nil {
		return t
	}
	u = pTerm(t)
	switch v := u.ctx.(type) {
	case termString:
		return u.with([2]string{string(key), string(v)})
	case termNumber:
		return u.with([2]string{string(key), strconv.Itoa(int(v))})
	}
	return t.fail("expected string or number")
}

func pCreateTable(t pToken) pToken {
	var cmd createTableCommand
	if u := pIfNotExists(t); u.err == nil {
		t = u
	} else {
		cmd.strict = true
	}
	if t = pTermId(t); t.err != nil {
		return t
	}
	cmd.identifier = string(t.ctx.(termId))
	if t = gRequire(pTerm, termSymbol("("))(t); t.err != nil {
		return t
	}
	if t = gList(pColumnDef, pTermComma)(t); t.err != nil {
		return t
	}
	ctxs := t.ctx.([]interface{})
	for _, ctx := range ctxs {
		cdef := ctx.(*ctxColumnDef)
		if cdef.keys != nil {
			if cmd.key != nil {
				return t.fail("multiple primary key definitions")
			}
			cmd.key = cdef.keys
		}
		if cdef.colName != "" {
			cmd.colnames = append(cmd.colnames, cdef.colName)
			cmd.coltypes = append(cmd.coltypes, cdef.colType)
		}
	}
	if t = gRequire(pTerm, termSymbol(")"))(t); t.err != nil {
		return t
	}
	return t.with(&cmd)
}

type ctxColumnDef struct {
	colName string
	colType string
	keys    []string
}

func pColumnDef(t pToken) pToken {
	cdef := &ctxColumnDef{}
	if u := gRequire(pTerm, termKeyword("primary"))(t); u.err == nil {
		if u = gRequire(pTerm, termKeyword("key"))(u); u.err != nil {
			return u
		}
		if u = gRequire(pTerm, termSymbol("("))(u); u.err != nil {
			return u
		}
		if u = pTermIdList(u); u.err != nil {
			return u
		}
		ctxs := u.ctx.([]interface{})
		cdef.keys = make([]string, len(ctxs))
		for i, ctx := range ctxs {
			cdef.keys[i] = string(ctx.(termId))
		}
		if u = gRequire(pTerm, termSymbol(")"))(u); u.err != nil {
			return u
		}
		return u.with(cdef)
	}
	if t = pTermId(t); t.err != nil {
		return t
	}
	cdef.colName = string(t.ctx.(termId))
	if t = pDataType(t); t.err != nil {
		return t
	}
	cdef.colType = t.ctx.(string)
	if u := gRequire(pTerm, termKeyword("primary"))(t); u.err == nil {
		if u = gRequire(pTerm, termKeyword("key"))(u); u.err != nil {
			return u
		}
		cdef.keys = []string{cdef.colName}
		t = u
	}
	return t.with(cdef)
}

func pDrop(t pToken) pToken {
	var cmd dropCommand
	u := pTerm(t)
	kw, _ := u.ctx.(termKeyword)
	if kw != "keyspace" && kw != "table" {
		return t.fail("expected KEYSPACE or TABLE")
	}
	cmd.dropType = string(kw)
	t = u
	if u = pIfExists(t); u.err == nil {
		t = u
	} else {
		cmd.strict = true
	}
	if t = pTermId(t); t.err != nil {
		return t
	}
	cmd.identifier = string(t.ctx.(termId))
	return t.with(&cmd)
}

func pAlter(t pToken) pToken {
	var cmd alterCommand
	if t = gRequire(pTerm, termKeyword("table"))(t); t.err != nil {
		return t
	}
	if t = pTermId(t); t.err != nil {
		return t
	}
	cmd.table = string(t.ctx.(termId))
	u := pTerm(t)
	kw, _ := u.ctx.(termKeyword)
	switch kw {
	case "add", "alter":
		if t = pTermId(u); t.err != nil {
			return t
		}
		if kw == "add" {
			cmd.add = string(t.ctx.(termId))
		} else {
			cmd.alter = string(t.ctx.(termId))
			// "type" is also a column of system_schema.columns, so it is not a keyword.
			if t = gRequire(pTerm, termId("type"))(t); t.err != nil {
				return t
			}
		}
		if t = pDataType(t); t.err != nil {
			return t
		}
		cmd.coltype = t.ctx.(string)
	case "drop":
		if t = pTermId(u); t.err != nil {
			return t
		}
		cmd.drop = string(t.ctx.(termId))
	default:
		return t.fail("expected ADD, ALTER, or DROP")
	}
	return t.with(&cmd)
}

func pInsert(t pToken) pToken {
	if t = gRequire(pTerm, termKeyword("into"))(t); t.err != nil {
		return t
	}
	if t = pTermId(t); t.err != nil {
		return t
	}
	id := string(t.ctx.(termId))
	if t = gRequire(pTerm, termSymbol("("))(t); t.err != nil {
		return t
	}
	if t = pTermIdList(t); t.err != nil {
		return t
	}
	ctxs := t.ctx.([]interface{})
	keys := make([]string, len(ctxs))
	for i, ctx := range ctxs {
		keys[i] = string(ctx.(termId))
	}
	if t = gRequire(pTerm, termSymbol(")"))(t); t.err != nil {
		return t
	}
	if t = gRequire(pTerm, termKeyword("values"))(t); t.err != nil {
		return t
	}
	if t = gRequire(pTerm, termSymbol("("))(t); t.err != nil {
		return t
	}
	if t = gList(pValue, pTermComma)(t); t.err != nil {
		return t
	}
	ctxs = t.ctx.([]interface{})
	vals := make([]pval, len(ctxs))
	for i, ctx := range ctxs {
		vals[i] = ctx.(pval)
	}
	if t = gRequire(pTerm, termSymbol(")"))(t); t.err != nil {
		return t
	}
	cas := false
	if u := pIfNotExists(t); u.err == nil {
		t = u
		cas = true
	}
	return t.with(&insertCommand{table: id, keys: keys, values: vals, cas: cas})
}

func pIfExists(t pToken) pToken {
	if t = gRequire(pTerm, termKeyword("if"))(t); t.err != nil {
		return t
	}
	return gRequire(pTerm, termKeyword("exists"))(t)
}

func pIfNotExists(t pToken) pToken {
	if t = gRequire(pTerm, termKeyword("if"))(t); t.err != nil {
		return t
	}
	if t = gRequire(pTerm, termKeyword("not"))(t); t.err != nil {
		return t
	}
	return gRequire(pTerm, termKeyword("exists"))(t)
}

func pSelect(t pToken) pToken {
	var cmd selectCommand
	if t = pSelectList(t); t.err != nil {
		return t
	}
	cmd.cols = t.ctx.([]string)
	if t = gRequire(pTerm, termKeyword("from"))(t); t.err != nil {
		return t
	}
	if t = pTermId(t); t.err != nil {
		return t
	}
	cmd.table = string(t.ctx.(termId))

	if u := gRequire(pTerm, termKeyword("where"))(t); u.err == nil {
		t = u
		if t = gList(pComparison, pTermAnd)(t); t.err != nil {
			return t
		}
		ctxs := t.ctx.([]interface{})
		cmd.where = make([]comparison, len(ctxs))
		for i, ctx := range ctxs {
			cmd.where[i] = ctx.(comparison)
		}
	}

	if u := gRequire(pTerm, termKeyword("limit"))(t); u.err == nil {
		t = u
		u = pTerm(t)
		limit, ok := u.ctx.(termNumber)
		if !ok || limit < 1 {
			return t.fail("expected positive number")
		}
		t = u
		cmd.limit = int(limit)
	}

	if u := gRequire(pTerm, termKeyword("allow"))(t); u.err == nil {
		if t = gRequire(pTerm, termKeyword("filtering"))(u); t.err != nil {
			return t
		}
		cmd.allowFiltering = true
	}
	return t.with(&cmd)
}

func pSelectList(t pToken) pToken {
	u := pTerm(t)
	switch v := u.ctx.(type) {
	case termSymbol:
		if v == "*" {
			return u.with([]string{"*"})
		}
	case termId:
		if t = pTermIdList(t); t.err != nil {
			return t
		}
		ctxs := t.ctx.([]interface{})
		ids := make([]string, len(ctxs))
		for i, ctx := range ctxs {
			ids[i] = string(ctx.(termId))
		}
		return t.with(ids)
	}
	return t.fail("expected * or identifier")
}

func pComparison(t pToken) pToken {
	var cmp comparison
	if t = pTermId(t); t.err != nil {
		return t
	}
	cmp.col = string(t.ctx.(termId))
	u := pTerm(t)
	if sym, ok := u.ctx.(termSymbol); u.err != nil || !ok || sym != "=" {
		return t.fail("expected =")
	}
	if t = pValue(u); t.err != nil {
		return t
	}
	cmp.val = t.ctx.(pval)
	return t.with(cmp)
}

func pDataType(t pToken) pToken {
	u := pTerm(t)
	kw, ok := u.ctx.(termKeyword)
	if !ok {
		return t.fail("expected column type")
	}
	if _, ok := fakeTypes[string(kw)]; !ok {
		return t.fail("expected column type")
	}
	return u.with(string(kw))
}

type termVar int
type termId string
type termKeyword string
type termSymbol string
type termString string
type termNumber int

func pTermIdList(t pToken) pToken {
	return gList(pTermId, pTermComma)(t)
}

func pTermId(t pToken) pToken {
	u := pTerm(t)
	if _, ok := u.ctx.(termId); ok {
		return u
	}
	return t.fail("expected identifier")
}

func pTermComma(t pToken) pToken {
	if u := pTerm(t); u.err == nil {
		if x, ok := u.ctx.(termSymbol); ok && x == "," {
			return u
		}
	}
	return t.fail("expected comma")
}

func pTermAnd(t pToken) pToken {
	if u := pTerm(t); u.err == nil {
		if x, ok := u.ctx.(termKeyword); ok && x == "and" {
			return u
		}
	}
	return t.fail("expected AND")
}

func pValue(t pToken) pToken {
	if t.eof() {
		return t.fail("expected value, got end of statement")
	}
	u := pTerm(t)
	if u.err == nil {
		switch v := u.ctx.(type) {
		case termVar:
			return u.with(pval{varIndex: int(v)})
		case termString:
			return u.with(pval{value: literalValue(string(v))})
		case termNumber:
			return u.with(pval{value: literalValue(int(v))})
		}
	}
	return t.fail("expected value")
}

func pTerm(t pToken) pToken {
	t = pSkipSpace(t)
	if t.eof() {
		return t.with(nil)
	}
	first := t.runes[0]
	if first == '?' {
		v := termVar(t.stmt.numVars)
		t.stmt.numVars++
		return pSkipSpace(t.advance(1)).with(v)
	} else if first == '\'' {
		return pSkipSpace(pStringLiteral(t))
	} else if unicode.IsDigit(first) {
		return pSkipSpace(pNumberLiteral(t))
	} else if first == '_' || unicode.IsLetter(first) {
		r := pSkipAlphanumeric(t)
		id := strings.ToLower(r.minus(t))
		s := pSkipSpace(r)
		if isKeyword(id) {
			return s.with(termKeyword(id))
		}
		return s.with(termId(id))
	} else {
		return pSkipSpace(pSymbol(t))
	}
}

func pStringLiteral(t pToken) pToken {
	backslash := false
	parts := make([]string, 0, 1)
	last := 1
	var i int
	for i = 1; i < len(t.runes); i++ {
		c := t.runes[i]
		if backslash {
			backslash = false
			last = i
		} else if c == '\\' {
			parts = append(parts, string(t.runes[last:i]))
			backslash = true
		} else if c == '\'' {
			break
		}
	}
	if i == len(t.runes) {
		return t.fail("unterminated string constant")
	}
	parts = append(parts, string(t.runes[last:i]))
	return t.advance(i + 1).with(termString(strings.Join(parts, "")))
}

func pNumberLiteral(t pToken) pToken {
	var i int
	for i = 0; i < len(t.runes) && unicode.IsDigit(t.runes[i]); i++ {
	}
	x, err := strconv.Atoi(string(t.runes[:i]))
	if err != nil {
		return t.fail(err)
	}
	return t.advance(i).with(termNumber(x))
}

func pSkipSpace(t pToken) pToken {
	for i := 0; t.err == nil && i < len(t.runes); i++ {
		if !unicode.IsSpace(t.runes[i]) {
			return t.advance(i)
		}
	}
	return pSkipAll(t)
}

// pSkipAlphanumeric consumes an identifier. Dots are included so that keyspace-qualified table
// names come back as a single term.
func pSkipAlphanumeric(t pToken) pToken {
	for i := 0; i < len(t.runes); i++ {
		next := t.runes[i]
		if next != '.' && next != '_' && !unicode.IsLetter(next) && !unicode.IsDigit(next) {
			return t.advance(i)
		}
	}
	return pSkipAll(t)
}

func pSkipAll(t pToken) pToken {
	newtok := t
	newtok.offset += len(t.runes)
	newtok.runes = []rune{}
	return newtok
}

func isKeyword(id string) bool {
	switch id {
	case "create", "drop", "alter", "add", "insert", "into", "values", "select", "from", "where",
		"and", "limit", "allow", "filtering", "keyspace", "table", "if", "not",
		"exists", "with", "primary", "key":
		return true
	}
	_, ok := fakeTypes[id]
	return ok
}

func pSymbol(t pToken) pToken {
	switch t.runes[0] {
	case '=', '{', '}', '(', ')', ':', ',', '*':
		return t.advance(1).with(termSymbol(string(t.runes[:1])))
	default:
		return t.failf("don't know how to handle character '%c' (%#v)", t.runes[0], t.runes[0])
	}
}
