package sgd

import "fmt"

const (
	// TblTrace is the name of the sql database table that holds the mean
	// log likelihood of each iteration.
	TblTrace = "sgdtrace"
	// TblGroups is the name of the sql database table that holds the log
	// likelihood and row count of every feature group step.
	TblGroups = "sgdgroups"
)

func (o *Optimizer) initdb() error {
	if o.Db == nil {
		return nil
	}

	s := "CREATE TABLE IF NOT EXISTS " + TblTrace + " (iter INTEGER, val REAL);"
	if _, err := o.Db.Exec(s); err != nil {
		return fmt.Errorf("sgd: create %v table: %w", TblTrace, err)
	}

	s = "CREATE TABLE IF NOT EXISTS " + TblGroups + " (iter INTEGER, grp INTEGER, nrows INTEGER, val REAL);"
	if _, err := o.Db.Exec(s); err != nil {
		return fmt.Errorf("sgd: create %v table: %w", TblGroups, err)
	}
	return nil
}

func (o *Optimizer) updateDb(iter int, lls []float64, nrows []int) (err error) {
	if o.Db == nil {
		return nil
	}

	tx, err := o.Db.Begin()
	if err != nil {
		return fmt.Errorf("sgd: begin trace tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	s1 := "INSERT INTO " + TblGroups + " (iter,grp,nrows,val) VALUES (?,?,?,?);"
	for g, ll := range lls {
		if _, err = tx.Exec(s1, iter, g, nrows[g], ll); err != nil {
			return fmt.Errorf("sgd: insert group row: %w", err)
		}
	}

	s2 := "INSERT INTO " + TblTrace + " (iter,val) VALUES (?,?);"
	if _, err = tx.Exec(s2, iter, o.Fopt); err != nil {
		return fmt.Errorf("sgd: insert trace row: %w", err)
	}
	return nil
}
