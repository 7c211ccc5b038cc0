/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package topology

import (
	"encoding/json"
	"sync/atomic"

	"github.com/abhivijay96/voltdb-client-go/internal/codec"
	"github.com/abhivijay96/voltdb-client-go/internal/hashinate"
	"github.com/abhivijay96/voltdb-client-go/internal/logx"
	"github.com/abhivijay96/voltdb-client-go/internal/router"
	"github.com/sirupsen/logrus"
)

// Column positions in a @SystemCatalog(PROCEDURES) row: the procedure name
// and the JSON remarks document.
const (
	catalogNameColumn    = 2
	catalogRemarksColumn = 6
)

// maxBadJSONLogs caps how many malformed catalog documents get logged;
// past the cap they are counted silently.
const maxBadJSONLogs = 10

var badJSONCount atomic.Int64

// procRemarks is the catalog JSON shape this client extracts; every other
// field in the document is ignored.
type procRemarks struct {
	ReadOnly               bool `json:"readOnly"`
	SinglePartition        bool `json:"singlePartition"`
	PartitionParameter     int  `json:"partitionParameter"`
	PartitionParameterType int  `json:"partitionParameterType"`
}

// applyCatalog is the catalog completion: it rebuilds the procedure map
// wholesale from a @SystemCatalog(PROCEDURES) result. Rows with malformed
// JSON are counted, logged up to the cap, and skipped; one bad row never
// poisons the rest of the catalog.
func (m *Manager) applyCatalog(resp *codec.Response) {
	t := resp.Table(0)
	if t == nil {
		logx.New(m.opts.Log).
			Level(logrus.WarnLevel).
			Message("procedure catalog without a result table").
			Log()
		return
	}

	procs := make(map[string]router.ProcInfo, t.RowCount())

	for i := 0; i < t.RowCount(); i++ {
		row := t.Rows[i]
		if len(row) <= catalogRemarksColumn {
			continue
		}

		name, ok := row[catalogNameColumn].(string)
		if !ok || name == "" {
			continue
		}
		doc, ok := row[catalogRemarksColumn].(string)
		if !ok {
			continue
		}

		var remarks procRemarks
		if err := json.Unmarshal([]byte(doc), &remarks); err != nil {
			if n := badJSONCount.Add(1); n <= maxBadJSONLogs {
				logx.New(m.opts.Log).
					Level(logrus.WarnLevel).
					Message("skipping procedure with malformed catalog document").
					Field(logx.FieldProcedure, name).
					Error(err).
					Log()
			}
			continue
		}

		info := router.ProcInfo{
			MultiPartition: !remarks.SinglePartition,
			ReadOnly:       remarks.ReadOnly,
			PartitionParam: -1,
		}
		if remarks.SinglePartition {
			info.PartitionParam = remarks.PartitionParameter
			info.ParamType = wireParamType(remarks.PartitionParameterType)
		}
		procs[name] = info
	}

	m.opts.Router.SetProcedures(procs)
}

// wireParamType maps the catalog's numeric parameter type onto the
// hashing contract's type tags.
func wireParamType(t int) hashinate.ParamType {
	switch t {
	case 3:
		return hashinate.ParamTypeTinyInt
	case 4:
		return hashinate.ParamTypeSmallInt
	case 5:
		return hashinate.ParamTypeInteger
	case 6:
		return hashinate.ParamTypeBigInt
	case 9:
		return hashinate.ParamTypeString
	case 25:
		return hashinate.ParamTypeVarbinary
	default:
		return hashinate.ParamTypeInteger
	}
}
