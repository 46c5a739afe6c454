package planner

// nextTasks is the rule table that fills the FIFO task queue from the current
// state. No LLM involved: the rules are a fixed dispatch over which parts of
// the state are stale.
//
//	itineraries empty                   -> plan
//	legs not computed, or POI set moved -> legs, validate, balance
//	any feedback pending                -> plan (refine consumes the feedback)
//	otherwise                           -> done
func nextTasks(st *State) []taskName {
	if len(st.Itineraries) == 0 {
		return []taskName{taskPlan}
	}
	if !legsComputed(st.Itineraries) || st.IsPoiChanged {
		return []taskName{taskLegs, taskValidate, taskBalance}
	}
	if st.ValidationFeedback != "" || st.ScheduleFeedback != "" {
		return []taskName{taskPlan}
	}
	return nil
}
