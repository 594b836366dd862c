package analyst

func SetRecord(rs *ResultSet, i int, rec *Record) {
	rs.records[i] = rec
}
