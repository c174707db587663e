package reviewdb

import "errors"
import "strings"

type command interface {
	Execute(*FakeCluster, valueList) (resultSet, error)
}

type createKeyspaceCommand struct {
	identifier  string
	strict      bool
	replication map[string]string
}

func (cmd *createKeyspaceCommand) Execute(c *FakeCluster, vals valueList) (resultSet, error) {
	if strings.Contains(cmd.identifier, ".") {
		return nil, errors.New("invalid keyspace name " + cmd.identifier)
	}
	if _, ok := c.keyspaces[cmd.identifier]; ok {
		if cmd.strict {
			return nil, errors.New("keyspace " + cmd.identifier + " already exists")
		}
		return resultSet{}, nil
	}
	c.addKeyspace(cmd.identifier, cmd.replication)
	return resultSet{}, nil
}

type createTableCommand struct {
	strict     bool
	identifier string
	colnames   []string
	coltypes   []string
	key        []string
}

func (cmd *createTableCommand) Execute(c *FakeCluster, vals valueList) (resultSet, error) {
	ksname, tname, err := splitQualified(cmd.identifier)
	if err != nil {
		return nil, err
	}
	ks, err := c.keyspace(ksname)
	if err != nil {
		return nil, err
	}
	if _, ok := ks.tables[tname]; ok {
		if cmd.strict {
			return nil, errors.New("table " + cmd.identifier + " already exists")
		}
		return resultSet{}, nil
	}
	if len(cmd.key) == 0 {
		return nil, errors.New("no PRIMARY KEY specified for table " + cmd.identifier)
	}
	table := newFakeTable(cmd.colnames, cmd.coltypes, cmd.key)
	for _, k := range cmd.key {
		if _, ok := table.columnType(k); !ok {
			return nil, errors.New("unknown definition " + k + " referenced in PRIMARY KEY")
		}
	}
	ks.tables[tname] = table
	return resultSet{}, nil
}

type dropCommand struct {
	dropType   string
	identifier string
	strict     bool
}

func (cmd *dropCommand) Execute(c *FakeCluster, vals valueList) (resultSet, error) {
	switch cmd.dropType {
	case "keyspace":
		if _, ok := c.keyspaces[cmd.identifier]; !ok {
			if cmd.strict {
				return nil, errors.New("keyspace " + cmd.identifier + " doesn't exist")
			}
		} else {
			delete(c.keyspaces, cmd.identifier)
		}
		return resultSet{}, nil
	case "table":
		ksname, tname, err := splitQualified(cmd.identifier)
		if err != nil {
			return nil, err
		}
		ks, err := c.keyspace(ksname)
		if err != nil {
			return nil, err
		}
		if _, ok := ks.tables[tname]; !ok {
			if cmd.strict {
				return nil, errors.New("table " + cmd.identifier + " doesn't exist")
			}
		} else {
			delete(ks.tables, tname)
		}
		return resultSet{}, nil
	default:
		return nil, errors.New("drop of " + cmd.dropType + " not implemented")
	}
}

type insertCommand struct {
	table  string
	keys   []string
	values []pval
	cas    bool
}

func (cmd *insertCommand) Execute(c *FakeCluster, vals valueList) (resultSet, error) {
	t, err := c.table(cmd.table)
	if err != nil {
		return nil, err
	}
	if len(cmd.keys) != len(cmd.values) {
		return nil, errors.New("unmatched column names/values")
	}
	cells := make(cellMap)
	for i, k := range cmd.keys {
		ti, ok := t.columnType(k)
		if !ok {
			return nil, errors.New("undefined column name " + k)
		}
		v := cmd.values[i].get(vals)
		if v.bytes != nil && v.info.Type() != ti.Type() {
			return nil, errors.New("invalid value for column " + k)
		}
		cells[k] = &cellValue{bytes: v.bytes, info: ti}
	}
	if _, err := t.set(cells, cmd.cas); err != nil {
		return nil, err
	}
	return resultSet{}, nil
}

type selectCommand struct {
	table          string
	cols           []string
	where          []comparison
	limit          int
	allowFiltering bool
}

func (cmd *selectCommand) Execute(c *FakeCluster, vals valueList) (resultSet, error) {
	t, err := c.table(cmd.table)
	if err != nil {
		return nil, err
	}
	for _, cmp := range cmd.where {
		if _, ok := t.columnType(cmp.col); !ok {
			return nil, errors.New("undefined column name " + cmp.col)
		}
		if !t.isKey(cmp.col) && !cmd.allowFiltering {
			return nil, errors.New("cannot execute this query as it might involve data filtering; " +
				"use ALLOW FILTERING")
		}
	}
	rows, err := t.query(cmd.cols, cmd.where, vals)
	if err != nil {
		return nil, err
	}
	if cmd.limit > 0 && cmd.limit < len(rows) {
		return rows[:cmd.limit], nil
	}
	return rows, nil
}

type alterCommand struct {
	table   string
	add     string
	alter   string
	drop    string
	coltype string
}

func (cmd *alterCommand) Execute(c *FakeCluster, vals valueList) (resultSet, error) {
	t, err := c.table(cmd.table)
	if err != nil {
		return nil, err
	}
	found := -1
	for i, col := range t.columns {
		if cmd.add == col {
			return nil, errors.New("column " + col + " already exists")
		}
		if cmd.alter == col || cmd.drop == col {
			found = i
		}
	}
	if cmd.add != "" {
		t.columns = append(t.columns, cmd.add)
		t.types = append(t.types, cmd.coltype)
		return resultSet{}, nil
	}
	if found == -1 {
		return nil, errors.New("no such column: " + cmd.alter + cmd.drop)
	}
	if t.isKey(t.columns[found]) {
		return nil, errors.New("cannot alter PRIMARY KEY part " + t.columns[found])
	}
	if cmd.alter != "" {
		t.types[found] = cmd.coltype
		return resultSet{}, nil
	}
	t.columns = append(t.columns[:found], t.columns[found+1:]...)
	t.types = append(t.types[:found], t.types[found+1:]...)
	for _, row := range t.rows {
		delete(row, cmd.drop)
	}
	return resultSet{}, nil
}
